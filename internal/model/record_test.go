package model

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNewEmailRecord(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*3600)
	msg := DecodedMessage{
		Subject:  "Outage report",
		Sender:   "ops@example.com",
		Receiver: "team@example.com",
		Date:     time.Date(2025, 3, 1, 9, 30, 0, 0, zone),
		Body:     strings.Repeat("é", MaxBodyRunes+50),
	}
	matched := []string{"outage"}

	rec, err := NewEmailRecord("42", "INBOX", msg, matched)
	if err != nil {
		t.Fatalf("NewEmailRecord: %v", err)
	}
	if got := utf8.RuneCountInString(rec.Body); got != MaxBodyRunes {
		t.Errorf("body has %d runes, want %d", got, MaxBodyRunes)
	}
	if !utf8.ValidString(rec.Body) {
		t.Error("truncated body is not valid UTF-8")
	}
	if _, offset := rec.Timestamp.Zone(); offset != 8*3600 {
		t.Errorf("timestamp offset = %d, want the declared +08:00", offset)
	}
	if rec.ID != "42" || rec.Folder != "INBOX" {
		t.Errorf("record = %+v", rec)
	}

	matched[0] = "changed"
	if rec.MatchedKeywords[0] != "outage" {
		t.Error("record shares the matched keyword slice")
	}
}

func TestNewEmailRecordNoKeywords(t *testing.T) {
	_, err := NewEmailRecord("1", "INBOX", DecodedMessage{}, nil)
	if !errors.Is(err, ErrNoKeywords) {
		t.Fatalf("err = %v, want ErrNoKeywords", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in        string
		n         int
		want      string
		truncated bool
	}{
		{"hello", 10, "hello", false},
		{"hello", 5, "hello", false},
		{"hello", 3, "hel", true},
		{"日本語テキスト", 3, "日本語", true},
		{"abc", 0, "", true},
		{"", 0, "", false},
		{"abc", -1, "", true},
	}
	for _, tt := range tests {
		got, truncated := TruncateRunes(tt.in, tt.n)
		if got != tt.want || truncated != tt.truncated {
			t.Errorf("TruncateRunes(%q, %d) = %q, %v; want %q, %v", tt.in, tt.n, got, truncated, tt.want, tt.truncated)
		}
	}
}

func TestSearchCriteriaValidate(t *testing.T) {
	if err := (SearchCriteria{Keywords: []string{" ", ""}, Days: 7}).Validate(); err == nil {
		t.Error("blank keywords accepted")
	}
	if err := (SearchCriteria{Keywords: []string{"x"}, Days: 0}).Validate(); err == nil {
		t.Error("zero days accepted")
	}
	if err := (SearchCriteria{Keywords: []string{"x"}, Days: 1}).Validate(); err != nil {
		t.Errorf("valid criteria rejected: %v", err)
	}
}

func TestNormalizedKeywords(t *testing.T) {
	c := SearchCriteria{Keywords: []string{"outage", "", "DB", "outage", "  ", "db"}}
	want := []string{"outage", "DB", "db"}
	if got := c.NormalizedKeywords(); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizedKeywords = %v, want %v", got, want)
	}
}

func TestResolvedFolders(t *testing.T) {
	tests := []struct {
		name string
		c    SearchCriteria
		want []string
	}{
		{"inbox only", SearchCriteria{}, []string{"INBOX"}},
		{"default sent", SearchCriteria{IncludeSent: true}, []string{"INBOX", "Sent Items"}},
		{"custom sent", SearchCriteria{IncludeSent: true, SentFolder: "Sent"}, []string{"INBOX", "Sent"}},
		{"explicit", SearchCriteria{Folders: []string{"Archive"}, IncludeSent: true}, []string{"Archive"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.ResolvedFolders(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolvedFolders = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)
	got := SearchCriteria{Days: 30}.Since(now)
	if want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Since = %v, want %v", got, want)
	}
}

func TestRunDegraded(t *testing.T) {
	if (Run{Total: 3}).Degraded() {
		t.Error("clean run reported as degraded")
	}
	if !(Run{MessagesSkipped: 1}).Degraded() {
		t.Error("run with a skipped message not degraded")
	}
	if !(Run{FoldersSkipped: 1}).Degraded() {
		t.Error("run with a skipped folder not degraded")
	}
}
