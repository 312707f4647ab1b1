// Package mboxdir serves a directory of mbox files as a mailbox. Each
// file is a folder; Thunderbird-style "Name.sbd" directories hold
// subfolders, which are named "Parent/Child".
package mboxdir

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/mail-timeline/internal/mailbox"
)

const provider = "mbox"

type storedMessage struct {
	raw  []byte
	date time.Time // zero when the Date header is missing or unparseable
}

// Session reads folders from dir. A selected folder is loaded fully into
// memory.
type Session struct {
	dir      string
	folders  map[string]string // folder name to file path
	selected string
	messages []storedMessage
}

var _ mailbox.Session = (*Session)(nil)

// Open scans dir for mbox files.
func Open(dir string) (*Session, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &mailbox.ConnError{Provider: provider, Op: "open " + dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &mailbox.ConnError{Provider: provider, Op: "open " + dir, Err: errors.New("not a directory")}
	}

	folders, err := scan(dir)
	if err != nil {
		return nil, &mailbox.ConnError{Provider: provider, Op: "scan " + dir, Err: err}
	}
	return &Session{dir: dir, folders: folders}, nil
}

// NewDialer returns a Dialer whose sessions read dir.
func NewDialer(dir string) mailbox.Dialer {
	return mailbox.DialerFunc(func(context.Context) (mailbox.Session, error) {
		return Open(dir)
	})
}

func scan(root string) (map[string]string, error) {
	folders := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasSuffix(d.Name(), ".mozmsgs") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if ext := filepath.Ext(d.Name()); ext != "" && ext != ".mbox" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		folders[folderName(rel)] = path
		return nil
	})
	return folders, err
}

// folderName maps "Work.sbd/Reports.mbox" to "Work/Reports".
func folderName(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		p = strings.TrimSuffix(p, ".sbd")
		parts[i] = strings.TrimSuffix(p, ".mbox")
	}
	return strings.Join(parts, "/")
}

// ListFolders returns folder names in sorted order.
func (s *Session) ListFolders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.folders))
	for name := range s.folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Session) resolve(name string) (string, bool) {
	if path, ok := s.folders[name]; ok {
		return path, true
	}
	for folder, path := range s.folders {
		if strings.EqualFold(folder, name) {
			return path, true
		}
	}
	return "", false
}

// SelectFolder loads every message of name.
func (s *Session) SelectFolder(ctx context.Context, name string) error {
	s.selected = ""
	s.messages = nil

	path, ok := s.resolve(name)
	if !ok {
		return fmt.Errorf("%w: %s", mailbox.ErrFolderNotFound, name)
	}
	msgs, err := readMbox(ctx, path)
	if err != nil {
		return fmt.Errorf("reading folder %s: %w", name, err)
	}

	s.selected = name
	s.messages = msgs
	return nil
}

func readMbox(ctx context.Context, path string) ([]storedMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var msgs []storedMessage
	r := mbox.NewReader(f)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mr, err := r.NextMessage()
		if err == io.EOF {
			return msgs, nil
		}
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(mr)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, storedMessage{raw: raw, date: headerDate(raw)})
	}
}

func headerDate(raw []byte) time.Time {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return time.Time{}
	}
	mh := mail.Header{Header: message.Header{Header: h}}
	t, err := mh.Date()
	if err != nil {
		return time.Time{}
	}
	return t
}

// SearchSince returns messages dated at or after since. Messages without
// a usable Date header are always included.
func (s *Session) SearchSince(ctx context.Context, since time.Time) ([]mailbox.MessageID, error) {
	if s.selected == "" {
		return nil, mailbox.ErrNoFolderSelected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []mailbox.MessageID
	for i, m := range s.messages {
		if m.date.IsZero() || !m.date.Before(since) {
			ids = append(ids, mailbox.MessageID(strconv.Itoa(i+1)))
		}
	}
	return ids, nil
}

// FetchRaw returns a copy of a message's bytes. Ids are 1-based ordinals
// within the selected folder.
func (s *Session) FetchRaw(ctx context.Context, id mailbox.MessageID) ([]byte, error) {
	if s.selected == "" {
		return nil, mailbox.ErrNoFolderSelected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(string(id))
	if err != nil || n < 1 || n > len(s.messages) {
		return nil, fmt.Errorf("%w: %s in %s", mailbox.ErrMessageNotFound, id, s.selected)
	}
	return bytes.Clone(s.messages[n-1].raw), nil
}

// Close releases the loaded folder.
func (s *Session) Close() error {
	s.selected = ""
	s.messages = nil
	return nil
}
