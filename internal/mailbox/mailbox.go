// Package mailbox defines the read-only mailbox capability the search
// engine consumes, independent of the transport behind it.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MessageID is an opaque, provider-assigned identifier. It is unique
// within a folder but not across folders.
type MessageID string

// Session is an authenticated, stateful connection to one mailbox.
// A Session is not safe for concurrent use; SelectFolder changes the
// folder that SearchSince and FetchRaw operate on.
type Session interface {
	// ListFolders returns the names of all selectable folders.
	ListFolders(ctx context.Context) ([]string, error)

	// SelectFolder opens name read-only for the following calls.
	SelectFolder(ctx context.Context, name string) error

	// SearchSince returns the messages in the selected folder dated on
	// or after since. Filtering happens on the provider side.
	SearchSince(ctx context.Context, since time.Time) ([]MessageID, error)

	// FetchRaw returns the full RFC 5322 content of a message.
	FetchRaw(ctx context.Context, id MessageID) ([]byte, error)

	// Close ends the session.
	Close() error
}

// Dialer opens new sessions. Parallel searches dial one session per
// worker.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Session, error) {
	return f(ctx)
}

var (
	// ErrFolderNotFound is returned when a folder does not exist.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrMessageNotFound is returned when a message id is unknown in the
	// selected folder.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNoFolderSelected is returned by SearchSince and FetchRaw before
	// any successful SelectFolder.
	ErrNoFolderSelected = errors.New("no folder selected")

	// ErrAuthFailed is wrapped by the ConnError of a rejected login.
	ErrAuthFailed = errors.New("authentication failed")
)

// ConnError indicates the session itself is unusable: the dial or login
// failed, or the connection was lost. A search cannot continue after it.
type ConnError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s connection error during %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// IsConnError reports whether err (or any error in its chain) is a ConnError.
func IsConnError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr)
}
