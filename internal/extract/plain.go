package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a single page.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]string, error) {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return []string{text}, nil
}
