package mboxdir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/nhle/mail-timeline/internal/mailbox"
)

var testNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

type fixture struct {
	subject string
	date    time.Time // zero writes an unparseable Date header
}

func writeFolder(t *testing.T, path string, msgs ...fixture) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := mbox.NewWriter(f)
	for _, m := range msgs {
		date := "sometime last week"
		envelope := testNow
		if !m.date.IsZero() {
			date = m.date.Format(time.RFC1123Z)
			envelope = m.date
		}
		mw, err := w.CreateMessage("ops@example.com", envelope)
		if err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(mw, "From: ops@example.com\r\nTo: team@example.com\r\nSubject: %s\r\nDate: %s\r\n\r\nstatus update\r\n", m.subject, date)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestListFolders(t *testing.T) {
	dir := t.TempDir()
	writeFolder(t, filepath.Join(dir, "INBOX"))
	writeFolder(t, filepath.Join(dir, "Sent Items.mbox"))
	writeFolder(t, filepath.Join(dir, "Work.sbd", "Reports"))
	if err := os.WriteFile(filepath.Join(dir, "INBOX.msf"), []byte("index"), 0o644); err != nil {
		t.Fatal(err)
	}

	sess, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := sess.ListFolders(context.Background())
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	want := []string{"INBOX", "Sent Items", "Work/Reports"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListFolders = %v, want %v", got, want)
	}
}

func TestSearchSinceAndFetch(t *testing.T) {
	dir := t.TempDir()
	writeFolder(t, filepath.Join(dir, "INBOX"),
		fixture{subject: "ancient", date: testNow.AddDate(0, 0, -90)},
		fixture{subject: "recent", date: testNow.AddDate(0, 0, -3)},
		fixture{subject: "undated"},
	)

	sess, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	if _, err := sess.SearchSince(ctx, testNow); !errors.Is(err, mailbox.ErrNoFolderSelected) {
		t.Fatalf("SearchSince before select = %v", err)
	}
	if err := sess.SelectFolder(ctx, "inbox"); err != nil {
		t.Fatalf("SelectFolder: %v", err)
	}

	ids, err := sess.SearchSince(ctx, testNow.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("SearchSince: %v", err)
	}
	if want := []mailbox.MessageID{"2", "3"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}

	raw, err := sess.FetchRaw(ctx, "2")
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if !strings.Contains(string(raw), "Subject: recent") {
		t.Errorf("unexpected message:\n%s", raw)
	}
	if !strings.Contains(string(raw), "status update") {
		t.Errorf("message body missing:\n%s", raw)
	}

	for _, id := range []mailbox.MessageID{"0", "4", "x"} {
		if _, err := sess.FetchRaw(ctx, id); !errors.Is(err, mailbox.ErrMessageNotFound) {
			t.Errorf("FetchRaw(%s) = %v, want ErrMessageNotFound", id, err)
		}
	}
}

func TestSelectMissingFolder(t *testing.T) {
	sess, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = sess.SelectFolder(context.Background(), "Sent Items")
	if !errors.Is(err, mailbox.ErrFolderNotFound) || mailbox.IsConnError(err) {
		t.Fatalf("SelectFolder = %v, want ErrFolderNotFound", err)
	}
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := NewDialer(filepath.Join(t.TempDir(), "nope")).Dial(context.Background())
	if !mailbox.IsConnError(err) {
		t.Fatalf("Dial = %v, want ConnError", err)
	}
}

func TestFolderName(t *testing.T) {
	tests := map[string]string{
		"INBOX":                     "INBOX",
		"Sent Items.mbox":           "Sent Items",
		"Work.sbd/Reports":          "Work/Reports",
		"Work.sbd/Q1.sbd/Incidents": "Work/Q1/Incidents",
	}
	for rel, want := range tests {
		if got := folderName(filepath.FromSlash(rel)); got != want {
			t.Errorf("folderName(%q) = %q, want %q", rel, got, want)
		}
	}
}
