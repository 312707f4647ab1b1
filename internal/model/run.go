package model

import "time"

// Run is one completed search as kept in the history database.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	Provider string
	Account  string

	Keywords []string
	Folders  []string
	Days     int

	// Total is the number of matched records.
	Total int

	MessagesScanned int
	FoldersSkipped  int
	MessagesSkipped int
	DatesImputed    int

	// Format is the format of the stored report.
	Format string
}

// Degraded reports whether anything was skipped during the run.
func (r Run) Degraded() bool {
	return r.FoldersSkipped > 0 || r.MessagesSkipped > 0
}

// StoredReport is the rendered output of a run.
type StoredReport struct {
	RunID   string
	Format  string
	Content string
}
