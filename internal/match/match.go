// Package match decides which configured keywords occur in a message.
package match

import (
	"strings"

	"github.com/nhle/mail-timeline/internal/model"
)

// Keywords returns the keywords whose lower-case form is a substring of
// the lower-cased subject and body joined by a space. The result keeps
// the order of keywords, drops exact duplicates and blank entries, and
// is empty when nothing matches.
func Keywords(subject, body string, keywords []string) []string {
	haystack := strings.ToLower(subject) + " " + strings.ToLower(body)

	var found []string
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}

		if strings.Contains(haystack, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	return found
}

// Message applies Keywords to a decoded message.
func Message(msg model.DecodedMessage, keywords []string) []string {
	return Keywords(msg.Subject, msg.Body, keywords)
}
