package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

type textRenderer struct{}

func (textRenderer) render(w io.Writer, in input) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "=== Mail Timeline Report ===")
	fmt.Fprintf(bw, "Generated: %s\n", in.generatedAt.Format(timeLayout))
	fmt.Fprintf(bw, "Total emails: %d\n", len(in.records))

	if s := in.summary; s.HasRange {
		fmt.Fprintf(bw, "Date range: %s ~ %s\n\n",
			s.Start.Format(time.DateOnly), s.End.Format(time.DateOnly))
	} else {
		fmt.Fprint(bw, "Date range: none\n\n")
		fmt.Fprintln(bw, "No matching emails found.")
	}

	rule := strings.Repeat("-", 80)
	for i, r := range in.records {
		date := r.Timestamp.Format(timeLayout)
		if r.DateImputed {
			date += " (date unknown)"
		}
		fmt.Fprintf(bw, "[%d] %s\n", i+1, date)
		fmt.Fprintf(bw, "    Subject: %s\n", r.Subject)
		fmt.Fprintf(bw, "    From: %s\n", r.Sender)
		fmt.Fprintf(bw, "    To: %s\n", r.Receiver)
		fmt.Fprintf(bw, "    Folder: %s\n", r.Folder)
		fmt.Fprintf(bw, "    Keywords: %s\n", strings.Join(r.MatchedKeywords, ", "))
		fmt.Fprintf(bw, "    Preview: %s\n", preview(r.Body, previewText))
		fmt.Fprintln(bw, rule)
	}

	return bw.Flush()
}
