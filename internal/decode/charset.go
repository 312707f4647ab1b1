package decode

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// step is one stage of the text decoding policy. It returns false when
// it cannot produce text and the next stage should be tried.
type step func(b []byte, label string) (string, bool)

// textPolicy is the ordered fallback used for bodies: the declared
// charset, then UTF-8 with replacement characters, then the raw bytes.
var textPolicy = []step{
	declaredCharset,
	lossyUTF8,
	rawString,
}

// decodeText converts b to a Go string following textPolicy.
func decodeText(b []byte, label string) string {
	for _, s := range textPolicy {
		if text, ok := s(b, label); ok {
			return text
		}
	}
	return ""
}

func declaredCharset(b []byte, label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return "", false
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), enc.NewDecoder()))
	if err != nil {
		return "", false
	}
	return strings.ToValidUTF8(string(out), "\uFFFD"), true
}

func lossyUTF8(b []byte, _ string) (string, bool) {
	return strings.ToValidUTF8(string(b), "\uFFFD"), true
}

func rawString(b []byte, _ string) (string, bool) {
	return string(b), true
}

// headerDecoder resolves RFC 2047 encoded words. Each word is decoded
// with its own charset; unknown charsets pass the bytes through so the
// final UTF-8 sanitizing step replaces what cannot be read.
var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(label string, input io.Reader) (io.Reader, error) {
		enc, _ := charset.Lookup(label)
		if enc == nil {
			return input, nil
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

// decodeHeader returns the display text of a raw header value.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	text, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		text = value
	}
	return strings.TrimSpace(strings.ToValidUTF8(text, "\uFFFD"))
}
