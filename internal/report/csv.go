package report

import (
	"encoding/csv"
	"io"
	"strings"
)

// CSVHeader is the fixed column row of csv reports.
var CSVHeader = []string{"date", "subject", "sender", "receiver", "folder", "keywords", "preview"}

type csvRenderer struct{}

func (csvRenderer) render(w io.Writer, in input) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, r := range in.records {
		row := []string{
			r.Timestamp.Format(timeLayout),
			r.Subject,
			r.Sender,
			r.Receiver,
			r.Folder,
			strings.Join(r.MatchedKeywords, ", "),
			preview(r.Body, previewCSV),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
