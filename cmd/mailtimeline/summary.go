package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail-timeline/internal/report"
	"github.com/nhle/mail-timeline/internal/search"
	"github.com/nhle/mail-timeline/internal/theme"
)

// maxListedFailures caps how many skipped units the summary names.
const maxListedFailures = 5

// renderSummary formats the end-of-search summary for stderr.
func renderSummary(res *search.Result, elapsed time.Duration) string {
	s := report.Aggregate(res.Records)
	o := res.Outcome

	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			theme.LabelStyle.Render(label), theme.ValueStyle.Render(value)))
		b.WriteByte('\n')
	}

	line("Emails", fmt.Sprintf("%d of %d scanned", s.Total, o.MessagesScanned))
	if s.HasRange {
		line("Date range", fmt.Sprintf("%s ~ %s (%d days)",
			s.Start.Format(time.DateOnly), s.End.Format(time.DateOnly), s.DayCount()))
	} else {
		line("Date range", "none")
	}
	line("Folders", fmt.Sprintf("%d searched", o.FoldersSearched))
	line("Elapsed", elapsed.Round(time.Millisecond).String())

	if len(s.Keywords) > 0 {
		b.WriteByte('\n')
		for i, kw := range s.Keywords {
			fmt.Fprintf(&b, "  %s %d\n", theme.KeywordStyle(i).Render(kw), s.KeywordCounts[kw])
		}
		for _, f := range s.Folders {
			fmt.Fprintf(&b, "  %s %d\n", theme.FolderStyle.Render(f), s.FolderCounts[f])
		}
	}

	if o.DatesImputed > 0 {
		b.WriteByte('\n')
		b.WriteString(theme.WarnStyle.Render(fmt.Sprintf("%d emails had no usable date", o.DatesImputed)))
		b.WriteByte('\n')
	}

	if o.Degraded() {
		b.WriteByte('\n')
		b.WriteString(theme.WarnStyle.Render(fmt.Sprintf("Skipped %d folders and %d emails",
			len(o.FoldersSkipped), len(o.MessagesSkipped))))
		b.WriteByte('\n')
		for i, f := range o.FoldersSkipped {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "  ... %d more folders\n", len(o.FoldersSkipped)-i)
				break
			}
			b.WriteString(theme.HelpStyle.Render("  " + f.String()))
			b.WriteByte('\n')
		}
		for i, m := range o.MessagesSkipped {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "  ... %d more emails\n", len(o.MessagesSkipped)-i)
				break
			}
			b.WriteString(theme.HelpStyle.Render("  " + m.String()))
			b.WriteByte('\n')
		}
	}

	title := theme.HeaderStyle.Render("Mail Timeline")
	return lipgloss.JoinVertical(lipgloss.Left, title,
		theme.PanelStyle.Render(strings.TrimRight(b.String(), "\n"))) + "\n"
}
