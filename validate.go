package fat

import "unicode/utf8"

const maxLongNameCodepoints = 255

// longNameExtraAllowed is the punctuation set, beyond ASCII letters and
// digits and the U+0080..U+FFFF range, permitted in a long name. This
// set differs from the short-name allowed set in shortname.go: it adds
// space, '.', '+', ',', ';', '=', '[' and ']' but lacks '#', '&' and '^'.
// Characters outside it are rejected; accepted characters outside the
// short-name set are what push a name into lossy short-name suffixing.
const longNameExtraAllowed = "$%'-_@~`!(){}. +,;=[]"

// ValidateLongName rejects empty names, names over 255 code points, and
// names containing a character outside the long-name allowed set.
func ValidateLongName(name string) error {
	if name == "" {
		return ErrInvalidInput
	}
	n := 0
	for _, r := range name {
		if r == utf8.RuneError {
			return ErrInvalidInput
		}
		if !isLongNameAllowedRune(r) {
			return ErrInvalidInput
		}
		n++
		if n > maxLongNameCodepoints {
			return ErrInvalidInput
		}
	}
	return nil
}

func isLongNameAllowedRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 0x0080 && r <= 0xFFFF:
		return true
	}
	for _, a := range longNameExtraAllowed {
		if r == a {
			return true
		}
	}
	return false
}
