package search

import (
	"fmt"

	"github.com/nhle/mail-timeline/internal/mailbox"
	"github.com/nhle/mail-timeline/internal/model"
)

// FolderFailure records a folder that was skipped.
type FolderFailure struct {
	Folder string
	// Op is "select" or "search".
	Op  string
	Err error
}

func (f FolderFailure) String() string {
	return fmt.Sprintf("%s (%s): %v", f.Folder, f.Op, f.Err)
}

// MessageFailure records a message that was skipped.
type MessageFailure struct {
	Folder string
	ID     mailbox.MessageID
	Err    error
}

func (m MessageFailure) String() string {
	return fmt.Sprintf("%s/%s: %v", m.Folder, m.ID, m.Err)
}

// Outcome summarizes how a search went, including everything it had to
// skip. A search with skipped units still succeeds.
type Outcome struct {
	FoldersSearched int
	FoldersSkipped  []FolderFailure

	// MessagesScanned counts candidates returned by the date search.
	MessagesScanned int
	MessagesMatched int
	MessagesSkipped []MessageFailure

	// DatesImputed counts returned records whose timestamp is the
	// decode time rather than a declared date.
	DatesImputed int
}

// Degraded reports whether any folder or message was skipped.
func (o Outcome) Degraded() bool {
	return len(o.FoldersSkipped) > 0 || len(o.MessagesSkipped) > 0
}

func (o *Outcome) merge(other Outcome) {
	o.FoldersSearched += other.FoldersSearched
	o.FoldersSkipped = append(o.FoldersSkipped, other.FoldersSkipped...)
	o.MessagesScanned += other.MessagesScanned
	o.MessagesMatched += other.MessagesMatched
	o.MessagesSkipped = append(o.MessagesSkipped, other.MessagesSkipped...)
	o.DatesImputed += other.DatesImputed
}

// Result is the ordered record list of a search plus its outcome.
type Result struct {
	// Records are sorted by ascending timestamp.
	Records []model.EmailRecord
	Outcome Outcome
}

type folderResult struct {
	records []model.EmailRecord
	outcome Outcome
}
