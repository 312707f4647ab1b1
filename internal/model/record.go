package model

import (
	"errors"
	"fmt"
	"time"
)

// MaxBodyRunes is the number of characters of a message body kept on a record.
const MaxBodyRunes = 1000

// ErrNoKeywords is returned when a record would be created without any
// matched keyword.
var ErrNoKeywords = errors.New("record has no matched keywords")

// DecodedMessage is a raw mail message normalized to plain text fields.
type DecodedMessage struct {
	Subject  string
	Sender   string
	Receiver string

	// Date is the message's declared date, or the decode time when
	// DateImputed is set.
	Date        time.Time
	DateImputed bool

	// Body is the concatenation of every text/plain part.
	Body string
}

// EmailRecord is a message that matched at least one configured keyword.
// Records are built with NewEmailRecord and treated as read-only afterwards.
type EmailRecord struct {
	// ID is the mailbox-assigned identifier, unique only within Folder.
	ID string `json:"id"`

	Subject  string `json:"subject"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`

	// Timestamp keeps the timezone offset declared by the message.
	Timestamp   time.Time `json:"timestamp"`
	DateImputed bool      `json:"date_imputed,omitempty"`

	// Body is truncated to MaxBodyRunes characters.
	Body string `json:"body"`

	Folder string `json:"folder"`

	// MatchedKeywords is never empty and follows the configured keyword order.
	MatchedKeywords []string `json:"matched_keywords"`
}

// NewEmailRecord builds a record from a decoded message. The body is
// truncated before the record is returned.
func NewEmailRecord(
	id, folder string,
	msg DecodedMessage,
	matched []string,
) (EmailRecord, error) {
	if len(matched) == 0 {
		return EmailRecord{}, fmt.Errorf("message %s in %s: %w", id, folder, ErrNoKeywords)
	}

	body, _ := TruncateRunes(msg.Body, MaxBodyRunes)

	return EmailRecord{
		ID:              id,
		Subject:         msg.Subject,
		Sender:          msg.Sender,
		Receiver:        msg.Receiver,
		Timestamp:       msg.Date,
		DateImputed:     msg.DateImputed,
		Body:            body,
		Folder:          folder,
		MatchedKeywords: append([]string(nil), matched...),
	}, nil
}

// TruncateRunes cuts s to at most n characters and reports whether
// anything was removed.
func TruncateRunes(s string, n int) (string, bool) {
	if n < 0 {
		n = 0
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
