// Package gmail implements mailbox.Session over the Gmail REST API.
// Labels play the role of folders and messages are fetched in raw
// RFC 5322 form, so decoding is identical to the IMAP path.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nhle/mail-timeline/internal/mailbox"
)

const (
	provider = "gmail"
	user     = "me"
	pageSize = 500
)

// folderAliases maps the folder names other providers use to Gmail's
// system labels.
var folderAliases = map[string]string{
	"sent items": "SENT",
	"sent":       "SENT",
	"inbox":      "INBOX",
}

// Session is a Gmail API client bound to one account.
type Session struct {
	svc      *gmail.Service
	labels   map[string]string // lowercased label name to label id
	selected string            // label id
	folder   string
}

var _ mailbox.Session = (*Session)(nil)

// Open builds an authorized session from an OAuth client secret file and
// a token file written by Authorize.
func Open(ctx context.Context, credentialsPath, tokenPath string) (*Session, error) {
	cfg, err := OAuthConfig(credentialsPath)
	if err != nil {
		return nil, &mailbox.ConnError{Provider: provider, Op: "load credentials", Err: err}
	}
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, &mailbox.ConnError{
			Provider: provider,
			Op:       "load token",
			Err:      fmt.Errorf("%w: %v (run the login command first)", mailbox.ErrAuthFailed, err),
		}
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, &mailbox.ConnError{Provider: provider, Op: "create service", Err: err}
	}
	return NewSession(svc), nil
}

// NewSession wraps an existing service.
func NewSession(svc *gmail.Service) *Session {
	return &Session{svc: svc}
}

// NewDialer returns a Dialer that opens a new authorized session per call.
func NewDialer(credentialsPath, tokenPath string) mailbox.Dialer {
	return mailbox.DialerFunc(func(ctx context.Context) (mailbox.Session, error) {
		return Open(ctx, credentialsPath, tokenPath)
	})
}

func (s *Session) loadLabels(ctx context.Context) ([]*gmail.Label, error) {
	res, err := s.svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, classify("list labels", err)
	}
	s.labels = make(map[string]string, len(res.Labels))
	for _, l := range res.Labels {
		s.labels[strings.ToLower(l.Name)] = l.Id
	}
	return res.Labels, nil
}

// ListFolders returns every label name.
func (s *Session) ListFolders(ctx context.Context) ([]string, error) {
	labels, err := s.loadLabels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names, nil
}

// SelectFolder resolves name to a label. "Sent Items" and "Sent" resolve
// to the SENT system label.
func (s *Session) SelectFolder(ctx context.Context, name string) error {
	s.selected, s.folder = "", ""
	if s.labels == nil {
		if _, err := s.loadLabels(ctx); err != nil {
			return err
		}
	}

	key := strings.ToLower(name)
	id, ok := s.labels[key]
	if !ok {
		if alias, found := folderAliases[key]; found {
			id, ok = s.labels[strings.ToLower(alias)]
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s", mailbox.ErrFolderNotFound, name)
	}

	s.selected, s.folder = id, name
	return nil
}

// SearchSince lists messages under the selected label received after
// since, following every result page.
func (s *Session) SearchSince(ctx context.Context, since time.Time) ([]mailbox.MessageID, error) {
	if s.selected == "" {
		return nil, mailbox.ErrNoFolderSelected
	}

	var ids []mailbox.MessageID
	call := s.svc.Users.Messages.List(user).
		LabelIds(s.selected).
		Q(Query(since)).
		MaxResults(pageSize)
	err := call.Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		for _, m := range page.Messages {
			ids = append(ids, mailbox.MessageID(m.Id))
		}
		return nil
	})
	if err != nil {
		return nil, classify("search "+s.folder, err)
	}
	return ids, nil
}

// Query returns the Gmail search expression for messages after since.
// A zero since matches every message.
func Query(since time.Time) string {
	if since.IsZero() {
		return ""
	}
	return "after:" + strconv.FormatInt(since.Unix(), 10)
}

// FetchRaw downloads the message in raw format and decodes it.
func (s *Session) FetchRaw(ctx context.Context, id mailbox.MessageID) ([]byte, error) {
	if s.selected == "" {
		return nil, mailbox.ErrNoFolderSelected
	}
	msg, err := s.svc.Users.Messages.Get(user, string(id)).Format("raw").Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s in %s", mailbox.ErrMessageNotFound, id, s.folder)
		}
		return nil, classify("fetch "+string(id), err)
	}
	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("decoding message %s: %w", id, err)
	}
	return raw, nil
}

// decodeRaw accepts base64url with or without padding.
func decodeRaw(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Close is a no-op; the HTTP client holds no per-session state.
func (s *Session) Close() error {
	s.selected, s.folder = "", ""
	return nil
}

// classify makes authorization and transport failures fatal and leaves
// other API errors scoped to the operation.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return &mailbox.ConnError{Provider: provider, Op: op, Err: err}
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &mailbox.ConnError{Provider: provider, Op: op, Err: fmt.Errorf("%w: %v", mailbox.ErrAuthFailed, err)}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
