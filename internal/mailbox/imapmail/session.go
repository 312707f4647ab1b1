// Package imapmail implements mailbox.Session over IMAP4rev1/rev2 using
// go-imap. Folders are always opened read-only and messages are fetched
// with BODY.PEEK[] so searching never changes \Seen flags.
package imapmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mail-timeline/internal/mailbox"
	"github.com/nhle/mail-timeline/internal/model"
)

const provider = "imap"

// Config describes how to reach and authenticate against an IMAP server.
type Config struct {
	Addr     string
	Security string // model.SecurityTLS, SecurityStartTLS or SecurityNone
	Username string
	Password string

	// TLSConfig overrides the default TLS settings; ServerName defaults to
	// the host part of Addr.
	TLSConfig *tls.Config

	DialTimeout time.Duration
	Logger      *slog.Logger
}

// ConfigFrom builds a Config from the mailbox settings.
func ConfigFrom(m model.MailboxConfig, logger *slog.Logger) Config {
	return Config{
		Addr:     m.Addr(),
		Security: m.Security,
		Username: m.Username,
		Password: m.Password,
		Logger:   logger,
	}
}

// Session is a logged-in IMAP connection.
type Session struct {
	client   *imapclient.Client
	selected string
	logger   *slog.Logger
}

var _ mailbox.Session = (*Session)(nil)

// Dial connects to the server, authenticates and returns the session.
// Both network and login failures are returned as *mailbox.ConnError;
// a rejected login additionally wraps mailbox.ErrAuthFailed.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return nil, &mailbox.ConnError{Provider: provider, Op: "dial " + cfg.Addr, Err: err}
	}

	_, err = await(ctx, func() (struct{}, error) {
		return struct{}{}, client.Login(cfg.Username, cfg.Password).Wait()
	})
	if err != nil {
		_ = client.Close()
		if ctx.Err() == nil && isServerReply(err) {
			err = fmt.Errorf("%w for %s: %v", mailbox.ErrAuthFailed, cfg.Username, err)
		}
		return nil, &mailbox.ConnError{Provider: provider, Op: "login", Err: err}
	}

	logger.Debug("imap session opened", "addr", cfg.Addr, "user", cfg.Username)
	return &Session{client: client, logger: logger}, nil
}

// NewDialer returns a Dialer that opens a fresh session per call.
func NewDialer(cfg Config) mailbox.Dialer {
	return mailbox.DialerFunc(func(ctx context.Context) (mailbox.Session, error) {
		return Dial(ctx, cfg)
	})
}

func connect(ctx context.Context, cfg Config) (*imapclient.Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	nd := &net.Dialer{Timeout: timeout}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	if tlsConfig.ServerName == "" {
		if host, _, err := net.SplitHostPort(cfg.Addr); err == nil {
			tlsConfig = tlsConfig.Clone()
			tlsConfig.ServerName = host
		}
	}
	opts := &imapclient.Options{TLSConfig: tlsConfig}

	switch cfg.Security {
	case model.SecurityTLS, "":
		td := &tls.Dialer{NetDialer: nd, Config: tlsConfig}
		conn, err := td.DialContext(ctx, "tcp", cfg.Addr)
		if err != nil {
			return nil, err
		}
		return imapclient.New(conn, opts), nil
	case model.SecurityStartTLS:
		conn, err := nd.DialContext(ctx, "tcp", cfg.Addr)
		if err != nil {
			return nil, err
		}
		client, err := imapclient.NewStartTLS(conn, opts)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return client, nil
	case model.SecurityNone:
		conn, err := nd.DialContext(ctx, "tcp", cfg.Addr)
		if err != nil {
			return nil, err
		}
		return imapclient.New(conn, opts), nil
	default:
		return nil, fmt.Errorf("unknown security mode %q", cfg.Security)
	}
}

// ListFolders returns every mailbox except those flagged \Noselect or
// \NonExistent.
func (s *Session) ListFolders(ctx context.Context) ([]string, error) {
	boxes, err := await(ctx, func() ([]*imap.ListData, error) {
		return s.client.List("", "*", nil).Collect()
	})
	if err != nil {
		return nil, s.classify("list", err)
	}

	names := make([]string, 0, len(boxes))
	for _, box := range boxes {
		if selectable(box.Attrs) {
			names = append(names, box.Mailbox)
		}
	}
	return names, nil
}

func selectable(attrs []imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == imap.MailboxAttrNoSelect || a == imap.MailboxAttrNonExistent {
			return false
		}
	}
	return true
}

// SelectFolder issues EXAMINE for name.
func (s *Session) SelectFolder(ctx context.Context, name string) error {
	_, err := await(ctx, func() (*imap.SelectData, error) {
		return s.client.Select(name, &imap.SelectOptions{ReadOnly: true}).Wait()
	})
	if err != nil {
		s.selected = ""
		if isServerReply(err) {
			return fmt.Errorf("%w: %s: %v", mailbox.ErrFolderNotFound, name, err)
		}
		return s.classify("select "+name, err)
	}
	s.selected = name
	return nil
}

// SearchSince runs UID SEARCH SINCE. IMAP compares dates only, so the
// result may include messages from earlier on the same day as since.
func (s *Session) SearchSince(ctx context.Context, since time.Time) ([]mailbox.MessageID, error) {
	if s.selected == "" {
		return nil, mailbox.ErrNoFolderSelected
	}

	data, err := await(ctx, func() (*imap.SearchData, error) {
		return s.client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	})
	if err != nil {
		return nil, s.classify("search "+s.selected, err)
	}

	uids := data.AllUIDs()
	ids := make([]mailbox.MessageID, len(uids))
	for i, uid := range uids {
		ids[i] = mailbox.MessageID(strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// FetchRaw fetches BODY.PEEK[] for a UID.
func (s *Session) FetchRaw(ctx context.Context, id mailbox.MessageID) ([]byte, error) {
	if s.selected == "" {
		return nil, mailbox.ErrNoFolderSelected
	}
	uid, err := strconv.ParseUint(string(id), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid uid %q", mailbox.ErrMessageNotFound, id)
	}

	section := &imap.FetchItemBodySection{Peek: true}
	opts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	msgs, err := await(ctx, func() ([]*imapclient.FetchMessageBuffer, error) {
		return s.client.Fetch(imap.UIDSetNum(imap.UID(uid)), opts).Collect()
	})
	if err != nil {
		return nil, s.classify("fetch "+string(id), err)
	}
	for _, msg := range msgs {
		if raw := msg.FindBodySection(section); raw != nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: uid %d in %s", mailbox.ErrMessageNotFound, uid, s.selected)
}

// Close logs out and closes the connection.
func (s *Session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("imap logout failed", "error", err)
		return s.client.Close()
	}
	_ = s.client.Close()
	return nil
}

// classify turns transport failures into ConnErrors and leaves server
// NO/BAD replies as ordinary errors scoped to the operation.
func (s *Session) classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isServerReply(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &mailbox.ConnError{Provider: provider, Op: op, Err: err}
}

func isServerReply(err error) bool {
	var imapErr *imap.Error
	return errors.As(err, &imapErr)
}

// await runs fn and waits for it or for ctx. go-imap commands do not take
// a context; an abandoned command completes in the background and its
// reply is discarded.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
