package artifact

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// decodeText normalizes raw device output to UTF-8. Most Cisco gear
// answers in plain ASCII/UTF-8; some older or localized devices emit
// GBK. Spec.md §4.4 calls for UTF-8 first, GBK second, latin-1 as a
// last-resort (latin-1 never fails: every byte maps to a rune).
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if s, err := simplifiedchinese.GBK.NewDecoder().String(string(raw)); err == nil && utf8.ValidString(s) {
		return s
	}
	if s, err := charmap.ISO8859_1.NewDecoder().String(string(raw)); err == nil {
		return s
	}
	return string(raw)
}
