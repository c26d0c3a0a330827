// Package format escapes user and catalog text for Telegram MarkdownV2.
package format

import "strings"

// v2Specials are the characters MarkdownV2 requires escaped outside entities.
const v2Specials = "_*[]()~`>#+-=|{}.!\\"

// V2 escapes text for MarkdownV2 message bodies.
func V2(text string) string {
	if !strings.ContainsAny(text, v2Specials) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(v2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
