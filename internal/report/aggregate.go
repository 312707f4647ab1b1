package report

import (
	"sort"
	"time"

	"github.com/nhle/mail-timeline/internal/model"
)

// Summary is a read-only view over a finished record set. Build a new
// one whenever the records change.
type Summary struct {
	Total int

	// HasRange is false for an empty record set, in which case Start and
	// End are zero. End is expressed in Start's location so both read as
	// dates on the same calendar.
	HasRange bool
	Start    time.Time
	End      time.Time

	// Keywords and Folders are the distinct values found, sorted.
	Keywords []string
	Folders  []string

	KeywordCounts map[string]int
	FolderCounts  map[string]int
}

// Aggregate computes the summary of records in a single pass.
func Aggregate(records []model.EmailRecord) Summary {
	s := Summary{
		Total:         len(records),
		KeywordCounts: make(map[string]int),
		FolderCounts:  make(map[string]int),
	}

	for i, r := range records {
		if i == 0 || r.Timestamp.Before(s.Start) {
			s.Start = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(s.End) {
			s.End = r.Timestamp
		}
		for _, kw := range r.MatchedKeywords {
			s.KeywordCounts[kw]++
		}
		s.FolderCounts[r.Folder]++
	}
	s.HasRange = len(records) > 0
	if s.HasRange {
		s.End = s.End.In(s.Start.Location())
	}

	s.Keywords = sortedKeys(s.KeywordCounts)
	s.Folders = sortedKeys(s.FolderCounts)
	return s
}

// DayCount is the number of calendar days from Start to End, counting
// both ends, with both dates read in Start's location. It is 0 when there
// is no range.
func (s Summary) DayCount() int {
	if !s.HasRange {
		return 0
	}
	start := dayNumber(s.Start)
	end := dayNumber(s.End.In(s.Start.Location()))
	return int(end-start) + 1
}

// dayNumber returns the days since 1970-01-01 of t's calendar date in its
// own location.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
