package report

import (
	"html/template"
	"io"
	"strings"
	"time"
)

type htmlCount struct {
	Name  string
	Count int
}

type htmlEntry struct {
	Date     string
	Imputed  bool
	Subject  string
	Sender   string
	Receiver string
	Folder   string
	Keywords []string
	Preview  string
}

type htmlData struct {
	Total         int
	Days          int
	KeywordTotal  int
	Start         string
	End           string
	Keywords      string
	Generated     string
	KeywordCounts []htmlCount
	FolderCounts  []htmlCount
	Entries       []htmlEntry
}

// htmlReport is parsed once and only ever executed. html/template escapes
// every interpolated value for its context.
var htmlReport = template.Must(template.New("report").Parse(htmlTemplate))

type htmlRenderer struct{}

func (htmlRenderer) render(w io.Writer, in input) error {
	return htmlReport.Execute(w, buildHTMLData(in))
}

func buildHTMLData(in input) htmlData {
	s := in.summary
	data := htmlData{
		Total:        s.Total,
		Days:         s.DayCount(),
		KeywordTotal: len(s.Keywords),
		Start:        "none",
		End:          "none",
		Keywords:     "none",
		Generated:    in.generatedAt.Format(timeLayout),
	}

	if s.HasRange {
		data.Start = s.Start.Format(time.DateOnly)
		data.End = s.End.Format(time.DateOnly)
	}
	if len(s.Keywords) > 0 {
		data.Keywords = strings.Join(s.Keywords, ", ")
	}
	for _, kw := range s.Keywords {
		data.KeywordCounts = append(data.KeywordCounts, htmlCount{Name: kw, Count: s.KeywordCounts[kw]})
	}
	for _, f := range s.Folders {
		data.FolderCounts = append(data.FolderCounts, htmlCount{Name: f, Count: s.FolderCounts[f]})
	}

	for _, r := range in.records {
		data.Entries = append(data.Entries, htmlEntry{
			Date:     r.Timestamp.Format(timeLayout),
			Imputed:  r.DateImputed,
			Subject:  r.Subject,
			Sender:   r.Sender,
			Receiver: r.Receiver,
			Folder:   r.Folder,
			Keywords: r.MatchedKeywords,
			Preview:  preview(r.Body, previewHTML),
		})
	}
	return data
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Mail Timeline Report</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: 'Segoe UI', 'Microsoft JhengHei', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; background-color: #f5f5f5; padding: 20px; }
.container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 10px; box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1); overflow: hidden; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
.header h1 { font-size: 2.5em; margin-bottom: 10px; font-weight: 300; }
.stats { display: flex; justify-content: space-around; margin-top: 20px; flex-wrap: wrap; }
.stat-item { text-align: center; min-width: 150px; }
.stat-number { font-size: 2em; font-weight: bold; display: block; }
.stat-label { font-size: 0.9em; opacity: 0.9; }
.content { padding: 30px; }
.search-info { background: #e8f4fd; border-left: 4px solid #2196F3; padding: 15px; margin-bottom: 30px; border-radius: 0 8px 8px 0; }
.breakdown { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; margin-bottom: 30px; }
.breakdown table { width: 100%; border-collapse: collapse; font-size: 0.9em; }
.breakdown th, .breakdown td { text-align: left; padding: 4px 8px; border-bottom: 1px solid #e9ecef; }
.timeline { position: relative; margin: 20px 0; }
.email-item { margin-bottom: 30px; border-radius: 8px; background: #ffffff; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.05); border-left: 4px solid #2196F3; }
.email-header { background: #f8f9fa; padding: 20px; border-bottom: 1px solid #e9ecef; }
.email-subject { font-size: 1.3em; font-weight: bold; color: #2c3e50; margin-bottom: 10px; }
.email-meta { display: grid; grid-template-columns: 1fr 1fr; gap: 15px; font-size: 0.9em; color: #666; }
.email-body { padding: 20px; }
.email-preview { background: #f8f9fa; border-radius: 6px; padding: 15px; margin: 10px 0; font-style: italic; color: #555; white-space: pre-wrap; }
.keywords { display: flex; flex-wrap: wrap; gap: 8px; margin: 15px 0; }
.keyword-tag { background: #ff6b6b; color: white; padding: 4px 12px; border-radius: 20px; font-size: 0.8em; font-weight: bold; }
.folder-tag { background: #28a745; color: white; padding: 2px 8px; border-radius: 12px; font-size: 0.75em; font-weight: bold; }
.date-badge { background: #6c757d; color: white; padding: 4px 8px; border-radius: 4px; font-size: 0.8em; font-weight: bold; }
.imputed { background: #ffc107; color: #333; }
.empty-state { text-align: center; color: #666; font-size: 1.2em; margin: 50px 0; }
.footer { background: #343a40; color: white; text-align: center; padding: 20px; font-size: 0.9em; }
@media (max-width: 768px) {
  body { padding: 10px; }
  .header { padding: 20px; }
  .header h1 { font-size: 2em; }
  .content { padding: 20px; }
  .email-meta, .breakdown { grid-template-columns: 1fr; gap: 10px; }
  .stats { flex-direction: column; gap: 15px; }
}
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Mail Timeline Report</h1>
    <div class="stats">
      <div class="stat-item"><span class="stat-number">{{.Total}}</span><span class="stat-label">Emails</span></div>
      <div class="stat-item"><span class="stat-number">{{.Days}}</span><span class="stat-label">Days spanned</span></div>
      <div class="stat-item"><span class="stat-number">{{.KeywordTotal}}</span><span class="stat-label">Keywords found</span></div>
    </div>
  </div>
  <div class="content">
    <div class="search-info">
      <h3>Search</h3>
      <p><strong>Date range:</strong> {{.Start}} to {{.End}}</p>
      <p><strong>Keywords:</strong> {{.Keywords}}</p>
      <p><strong>Generated:</strong> {{.Generated}}</p>
    </div>
{{- if .Entries}}
    <div class="breakdown">
      <table>
        <tr><th>Keyword</th><th>Emails</th></tr>
{{- range .KeywordCounts}}
        <tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>
{{- end}}
      </table>
      <table>
        <tr><th>Folder</th><th>Emails</th></tr>
{{- range .FolderCounts}}
        <tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>
{{- end}}
      </table>
    </div>
    <div class="timeline">
{{- range .Entries}}
      <div class="email-item">
        <div class="email-header">
          <div class="email-subject">{{.Subject}}</div>
          <div class="email-meta">
            <div><span class="date-badge{{if .Imputed}} imputed{{end}}">{{.Date}}</span></div>
            <div><span class="folder-tag">{{.Folder}}</span></div>
            <div>From: {{.Sender}}</div>
            <div>To: {{.Receiver}}</div>
          </div>
        </div>
        <div class="email-body">
          <div class="keywords">
{{- range .Keywords}}
            <span class="keyword-tag">{{.}}</span>
{{- end}}
          </div>
          <div class="email-preview">{{.Preview}}</div>
        </div>
      </div>
{{- end}}
    </div>
{{- else}}
    <div class="timeline">
      <p class="empty-state">No matching emails found</p>
    </div>
{{- end}}
  </div>
  <div class="footer">
    <p>Mail Timeline - keyword search and timeline analysis for mailboxes</p>
  </div>
</div>
</body>
</html>
`
