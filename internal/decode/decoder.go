// Package decode turns raw RFC 5322 messages into plain-text fields.
//
// Decoding never fails as a whole. A header that cannot be resolved keeps
// its raw text, a body part in an unknown charset falls back to lossy UTF-8,
// and a missing or malformed Date is replaced by the current time with
// DateImputed set.
package decode

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mail-timeline/internal/model"
)

const (
	// maxPartBytes caps how much of a single MIME part is read.
	maxPartBytes = 25 << 20

	// maxDepth bounds multipart nesting.
	maxDepth = 32
)

// Decoder converts raw messages into model.DecodedMessage values.
type Decoder struct {
	// Now supplies the timestamp used when a message has no usable date.
	Now func() time.Time
}

// New returns a Decoder that imputes missing dates with time.Now.
func New() *Decoder {
	return &Decoder{Now: time.Now}
}

func (d *Decoder) now() time.Time {
	if d == nil || d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Decode normalizes raw into header text, a timestamp and the text/plain
// body. A failure in one field never prevents the others from decoding.
func (d *Decoder) Decode(raw []byte) model.DecodedMessage {
	entity, err := message.Read(bytes.NewReader(raw))
	if entity == nil {
		// The header block itself is unreadable; keep whatever text there is.
		return model.DecodedMessage{
			Body:        strings.TrimSpace(decodeText(raw, "")),
			Date:        d.now(),
			DateImputed: true,
		}
	}

	msg := model.DecodedMessage{
		Subject:  decodeHeader(entity.Header.Get("Subject")),
		Sender:   decodeHeader(entity.Header.Get("From")),
		Receiver: decodeHeader(entity.Header.Get("To")),
	}

	mh := mail.Header{Header: entity.Header}
	date, dateErr := mh.Date()
	if dateErr != nil || date.IsZero() {
		msg.Date = d.now()
		msg.DateImputed = true
	} else {
		msg.Date = date
	}

	var parts []string
	if entity.MultipartReader() != nil {
		collectPlainText(entity, 0, &parts)
	} else {
		parts = append(parts, readPart(entity, err))
	}
	msg.Body = strings.TrimSpace(strings.Join(parts, ""))

	return msg
}

// collectPlainText appends the text of every text/plain leaf under e in
// traversal order.
func collectPlainText(e *message.Entity, depth int, out *[]string) {
	if depth > maxDepth {
		return
	}

	mr := e.MultipartReader()
	if mr == nil {
		mediaType, _ := contentType(e.Header)
		if mediaType == "text/plain" {
			*out = append(*out, readPart(e, nil))
		}
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return
		}
		if part == nil {
			// The multipart structure is broken past this point.
			return
		}
		if part.MultipartReader() != nil {
			collectPlainText(part, depth+1, out)
			continue
		}
		mediaType, _ := contentType(part.Header)
		if mediaType == "text/plain" {
			*out = append(*out, readPart(part, err))
		}
	}
}

// readPart reads a leaf entity. newErr is the error reported when the
// entity was created; an unknown charset there means the body bytes are
// still in the declared charset and need converting here.
func readPart(e *message.Entity, newErr error) string {
	body, _ := io.ReadAll(io.LimitReader(e.Body, maxPartBytes))

	_, label := contentType(e.Header)
	if newErr == nil || !message.IsUnknownCharset(newErr) {
		// go-message already converted the body, or it was UTF-8 to begin with.
		label = "utf-8"
	}
	if label == "" {
		label = "utf-8"
	}
	return decodeText(body, label)
}

// contentType returns the lower-cased media type and charset label of a
// header. A missing Content-Type means text/plain.
func contentType(h message.Header) (mediaType string, charsetLabel string) {
	raw := h.Get("Content-Type")
	if strings.TrimSpace(raw) == "" {
		return "text/plain", ""
	}
	t, params, err := mime.ParseMediaType(raw)
	if err != nil {
		// Keep whatever precedes the first parameter.
		t = strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
	}
	return strings.ToLower(t), params["charset"]
}
