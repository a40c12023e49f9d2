// Package codepage renders the raw OEM bytes of an 8.3 short name into
// readable Unicode, and maps a Unicode string back onto the OEM byte
// range used for literal short-name overrides. FAT's short-name bytes
// above 0x7F are code-page specific; this module always assumes CP437,
// the original IBM PC OEM page and the FAT specification's default.
package codepage

import (
	"golang.org/x/text/encoding/charmap"
)

// ToUnicode decodes CP437 bytes (e.g. the 11-byte short name region of a
// directory slot) into a Go string, for logging and diagnostics.
func ToUnicode(oem []byte) string {
	out, err := charmap.CodePage437.NewDecoder().Bytes(oem)
	if err != nil {
		// CodePage437 has no undefined code points, so this is
		// unreachable for any input length; fall back defensively.
		return string(oem)
	}
	return string(out)
}

// FromUnicode encodes s as CP437, replacing any rune with no CP437
// representation with '?'. It is used when a caller supplies a literal
// byte-for-byte short name override containing non-ASCII characters.
func FromUnicode(s string) []byte {
	out, err := charmap.CodePage437.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Best effort: charmap replaces unmappable runes with '?'
		// itself before returning an error for the whole string, so
		// re-run rune by rune to salvage what we can.
		var b []byte
		enc := charmap.CodePage437.NewEncoder()
		for _, r := range s {
			if eb, err := enc.Bytes([]byte(string(r))); err == nil {
				b = append(b, eb...)
			} else {
				b = append(b, '?')
			}
		}
		return b
	}
	return out
}
