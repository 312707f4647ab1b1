// Package report summarizes search results and renders them as json,
// csv, plain text or a standalone html document.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nhle/mail-timeline/internal/model"
)

// Format is one of the supported output formats.
type Format int

const (
	FormatJSON Format = iota + 1
	FormatCSV
	FormatText
	FormatHTML
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatCSV, FormatText, FormatHTML}

// ParseFormat converts a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "text", "txt":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	default:
		return 0, fmt.Errorf("unknown report format %q (want json, csv, text or html)", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatText:
		return "text"
	case FormatHTML:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the conventional file extension, without the dot.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return f.String()
}

// Preview lengths, in characters, per format.
const (
	previewJSON = 200
	previewCSV  = 200
	previewText = 150
	previewHTML = 300
)

const (
	ellipsis   = "..."
	timeLayout = "2006-01-02 15:04:05"
)

// input is everything a renderer may read.
type input struct {
	records     []model.EmailRecord
	summary     Summary
	generatedAt time.Time
}

// first and last return the range endpoints in input order.
func (in input) first() (model.EmailRecord, bool) {
	if len(in.records) == 0 {
		return model.EmailRecord{}, false
	}
	return in.records[0], true
}

func (in input) last() (model.EmailRecord, bool) {
	if len(in.records) == 0 {
		return model.EmailRecord{}, false
	}
	return in.records[len(in.records)-1], true
}

// renderer is implemented by exactly one type per Format.
type renderer interface {
	render(w io.Writer, in input) error
}

func (f Format) renderer() (renderer, error) {
	switch f {
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatCSV:
		return csvRenderer{}, nil
	case FormatText:
		return textRenderer{}, nil
	case FormatHTML:
		return htmlRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %v", f)
	}
}

// Render writes records in format f to w. records are rendered in the
// given order, which callers keep ascending by timestamp. An empty slice
// renders each format's zero state.
func Render(w io.Writer, f Format, records []model.EmailRecord, generatedAt time.Time) error {
	r, err := f.renderer()
	if err != nil {
		return err
	}
	in := input{
		records:     records,
		summary:     Aggregate(records),
		generatedAt: generatedAt,
	}
	if err := r.render(w, in); err != nil {
		return fmt.Errorf("rendering %s report: %w", f, err)
	}
	return nil
}

// RenderString renders into a string.
func RenderString(f Format, records []model.EmailRecord, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, f, records, generatedAt); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// preview truncates body to n characters, marking truncation with an
// ellipsis.
func preview(body string, n int) string {
	if cut, truncated := model.TruncateRunes(body, n); truncated {
		return cut + ellipsis
	}
	return body
}
