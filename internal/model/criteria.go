package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default folder names used when the criteria list none.
const (
	DefaultInbox      = "INBOX"
	DefaultSentFolder = "Sent Items"
)

// SearchCriteria describes one search run.
type SearchCriteria struct {
	// Keywords are matched case-insensitively, in this order.
	Keywords []string

	// Folders to search. When empty, INBOX is searched, plus SentFolder
	// if IncludeSent is set.
	Folders     []string
	IncludeSent bool
	SentFolder  string

	// Days is the lookback window; messages dated on or after now-Days
	// are retrieved.
	Days int
}

// Validate reports whether the criteria can drive a search.
func (c SearchCriteria) Validate() error {
	if len(c.NormalizedKeywords()) == 0 {
		return errors.New("at least one keyword is required")
	}
	if c.Days < 1 {
		return fmt.Errorf("lookback days must be at least 1, got %d", c.Days)
	}
	return nil
}

// NormalizedKeywords returns the keyword list without blank entries and
// exact duplicates, preserving the first occurrence of each keyword.
func (c SearchCriteria) NormalizedKeywords() []string {
	seen := make(map[string]struct{}, len(c.Keywords))
	out := make([]string, 0, len(c.Keywords))
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// ResolvedFolders returns the folders to search.
func (c SearchCriteria) ResolvedFolders() []string {
	if len(c.Folders) > 0 {
		return append([]string(nil), c.Folders...)
	}

	folders := []string{DefaultInbox}
	if c.IncludeSent {
		sent := c.SentFolder
		if sent == "" {
			sent = DefaultSentFolder
		}
		folders = append(folders, sent)
	}
	return folders
}

// Since returns the start of the lookback window relative to now.
func (c SearchCriteria) Since(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.Days)
}
