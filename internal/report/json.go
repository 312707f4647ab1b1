package report

import (
	"encoding/json"
	"io"
	"time"
)

type jsonDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type jsonEntry struct {
	Date          string   `json:"date"`
	Subject       string   `json:"subject"`
	Sender        string   `json:"sender"`
	Receiver      string   `json:"receiver"`
	Folder        string   `json:"folder"`
	KeywordsFound []string `json:"keywordsFound"`
	Preview       string   `json:"preview"`
	DateImputed   bool     `json:"dateImputed,omitempty"`
}

type jsonReport struct {
	GeneratedAt string         `json:"generatedAt"`
	TotalEmails int            `json:"totalEmails"`
	DateRange   *jsonDateRange `json:"dateRange"`
	Timeline    []jsonEntry    `json:"timeline"`
}

type jsonRenderer struct{}

func (jsonRenderer) render(w io.Writer, in input) error {
	doc := jsonReport{
		GeneratedAt: in.generatedAt.Format(time.RFC3339),
		TotalEmails: len(in.records),
		Timeline:    make([]jsonEntry, 0, len(in.records)),
	}

	first, ok := in.first()
	if ok {
		last, _ := in.last()
		doc.DateRange = &jsonDateRange{
			Start: first.Timestamp.Format(time.RFC3339),
			End:   last.Timestamp.Format(time.RFC3339),
		}
	}

	for _, r := range in.records {
		doc.Timeline = append(doc.Timeline, jsonEntry{
			Date:          r.Timestamp.Format(time.RFC3339),
			Subject:       r.Subject,
			Sender:        r.Sender,
			Receiver:      r.Receiver,
			Folder:        r.Folder,
			KeywordsFound: append([]string{}, r.MatchedKeywords...),
			Preview:       preview(r.Body, previewJSON),
			DateImputed:   r.DateImputed,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
