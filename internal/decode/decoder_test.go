package decode

import (
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestDecoder() *Decoder {
	return &Decoder{Now: func() time.Time { return fixedNow }}
}

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestDecodeMixedCharsetSubject(t *testing.T) {
	raw := crlf(`From: =?UTF-8?B?57O757Wx?= <ops@example.com>
To: team@example.com
Subject: =?UTF-8?B?57O757Wx?= =?big5?B?rEe72Q==?= notice
Date: Mon, 10 Mar 2025 08:30:00 +0800
Content-Type: text/plain; charset=utf-8

body
`)

	msg := newTestDecoder().Decode(raw)

	if msg.Subject != "系統故障 notice" {
		t.Errorf("Subject = %q, want %q", msg.Subject, "系統故障 notice")
	}
	if msg.Sender != "系統 <ops@example.com>" {
		t.Errorf("Sender = %q", msg.Sender)
	}
	if msg.Receiver != "team@example.com" {
		t.Errorf("Receiver = %q", msg.Receiver)
	}
	if msg.Body != "body" {
		t.Errorf("Body = %q, want %q", msg.Body, "body")
	}
	if msg.DateImputed {
		t.Fatalf("DateImputed = true for a valid date")
	}
	_, offset := msg.Date.Zone()
	if offset != 8*3600 {
		t.Errorf("zone offset = %d, want %d", offset, 8*3600)
	}
	if !msg.Date.Equal(time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", msg.Date)
	}
}

func TestDecodeUnknownHeaderCharsetDegrades(t *testing.T) {
	raw := crlf(`Subject: =?x-no-such-charset?Q?hello?= world
Date: Mon, 10 Mar 2025 08:30:00 +0000

text
`)

	msg := newTestDecoder().Decode(raw)
	if !strings.Contains(msg.Subject, "world") {
		t.Fatalf("Subject = %q, want it to keep the plain words", msg.Subject)
	}
	if msg.Body != "text" {
		t.Fatalf("Body = %q", msg.Body)
	}
}

func TestDecodeMultipartConcatenatesPlainParts(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: report
Date: Tue, 11 Mar 2025 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

first part
--inner
Content-Type: text/html; charset=utf-8

<p>html only</p>
--inner--
--outer
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

caf=E9
--outer
Content-Type: application/octet-stream
Content-Disposition: attachment; filename="x.bin"
Content-Transfer-Encoding: base64

AAEC
--outer--
`)

	msg := newTestDecoder().Decode(raw)

	if !strings.Contains(msg.Body, "first part") {
		t.Errorf("Body %q missing first part", msg.Body)
	}
	if !strings.Contains(msg.Body, "café") {
		t.Errorf("Body %q missing latin-1 part", msg.Body)
	}
	if strings.Contains(msg.Body, "html only") {
		t.Errorf("Body %q includes text/html content", msg.Body)
	}
	if strings.Index(msg.Body, "first part") > strings.Index(msg.Body, "café") {
		t.Errorf("Body %q not in traversal order", msg.Body)
	}
}

func TestDecodeBig5Body(t *testing.T) {
	raw := crlf(`Subject: =?big5?B?uvKr5rCxvvezcaq+?=
Date: Wed, 12 Mar 2025 10:00:00 +0800
Content-Type: text/plain; charset=big5
Content-Transfer-Encoding: base64

pviqQb65rEe72aFBvdC+qLN0s0Kyeg==
`)

	msg := newTestDecoder().Decode(raw)
	if msg.Subject != "緊急停機通知" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Body != "伺服器故障，請儘速處理" {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestDecodeUnknownBodyCharsetFallsBackToUTF8(t *testing.T) {
	raw := append(crlf(`Subject: odd
Date: Wed, 12 Mar 2025 10:00:00 +0000
Content-Type: text/plain; charset=x-no-such-charset

plain ascii `), 0xff, 'z')

	msg := newTestDecoder().Decode(raw)
	if !strings.HasPrefix(msg.Body, "plain ascii") {
		t.Fatalf("Body = %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "�") {
		t.Fatalf("Body = %q, want replacement character for invalid byte", msg.Body)
	}
}

func TestDecodeImputesUnparseableDate(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{name: "garbage", date: "Date: sometime last week\n"},
		{name: "missing", date: ""},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			raw := crlf("Subject: hello\n" + tc.date + "\nbody\n")
			msg := newTestDecoder().Decode(raw)
			if !msg.DateImputed {
				t.Fatalf("DateImputed = false")
			}
			if !msg.Date.Equal(fixedNow) {
				t.Fatalf("Date = %v, want %v", msg.Date, fixedNow)
			}
			if msg.Subject != "hello" || msg.Body != "body" {
				t.Fatalf("other fields lost: %+v", msg)
			}
		})
	}
}

func TestDecodeMalformedHeaderBlock(t *testing.T) {
	msg := newTestDecoder().Decode([]byte("not a mail message"))
	if !msg.DateImputed {
		t.Fatalf("DateImputed = false")
	}
	if !strings.Contains(msg.Body, "not a mail message") {
		t.Fatalf("Body = %q", msg.Body)
	}
}

func TestDecodeTextPolicy(t *testing.T) {
	if got := decodeText([]byte("caf\xe9"), "iso-8859-1"); got != "café" {
		t.Errorf("declared charset: got %q", got)
	}
	if got := decodeText([]byte("ok\xff"), ""); got != "ok�" {
		t.Errorf("default utf-8: got %q", got)
	}
	if got := decodeText([]byte("ok\xff"), "bogus"); got != "ok�" {
		t.Errorf("unknown charset: got %q", got)
	}
}
