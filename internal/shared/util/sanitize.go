package util

import (
	"strings"
	"unicode/utf8"
)

// SanitizeMessage flattens msg onto one line and cuts it to at most maxBytes
// without splitting a rune.
func SanitizeMessage(msg string, maxBytes int) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if maxBytes <= 0 || len(msg) <= maxBytes {
		return msg
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
