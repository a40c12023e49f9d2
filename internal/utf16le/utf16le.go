// Package utf16le encodes and decodes the UTF-16LE code unit sequences
// used by VFAT long file name slots. LFN code units are always little
// endian on disk, so unlike a general-purpose UTF-16 codec this package
// takes no byte-order parameter and works directly in []uint16.
package utf16le

import "unicode/utf16"

const (
	surr1    = 0xd800
	surr2    = 0xdc00
	surr3    = 0xe000
	surrSelf = 0x10000

	// ReplacementUnit is substituted for any code unit that cannot be
	// decoded as part of a valid rune.
	ReplacementUnit = 0xFFFD
)

// Encode converts a Go string to UTF-16 code units, encoding runes
// outside the basic multilingual plane as surrogate pairs exactly as
// unicode/utf16.Encode does; it exists here so callers needing LFN
// semantics have one import instead of two.
func Encode(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// Decode converts UTF-16 code units back to a Go string, pairing
// surrogates and substituting the replacement character for any
// unpaired or out-of-range surrogate it encounters.
func Decode(units []uint16) string {
	return string(utf16.Decode(units))
}

// DecodeRuneAt decodes a single rune starting at units[0], returning the
// rune and how many code units it consumed (1 or 2).
func DecodeRuneAt(units []uint16) (r rune, size int) {
	if len(units) == 0 {
		return ReplacementUnit, 0
	}
	u0 := units[0]
	switch {
	case u0 < surr1, surr3 <= u0:
		return rune(u0), 1
	case surr1 <= u0 && u0 < surr2:
		if len(units) < 2 {
			return ReplacementUnit, 1
		}
		u1 := units[1]
		if !(surr2 <= u1 && u1 < surr3) {
			return ReplacementUnit, 1
		}
		return utf16.DecodeRune(rune(u0), rune(u1)), 2
	default:
		return ReplacementUnit, 1
	}
}

// IsSurrogate reports whether r needed a surrogate pair when last
// encoded, i.e. it lies outside the basic multilingual plane.
func IsSurrogate(r rune) bool {
	return r >= surrSelf
}
