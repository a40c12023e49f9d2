package fat

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/oakbranch/vfat/internal/codepage"
	"github.com/oakbranch/vfat/internal/utf16le"
)

// isShortNameAllowedRune reports whether r is kept as-is (after
// upper-casing letters) when deriving an 8.3 short name. The set
// differs from the long-name validation set in validate.go: it has no
// non-ASCII runes and no space, '+', ',', ';', '=', '[' or ']', which is
// what forces lossy suffixing for names that are otherwise perfectly
// valid long names.
func isShortNameAllowedRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '!', '#', '$', '%', '&', '\'', '(', ')', '-', '@', '^', '_', '`', '{', '}', '~':
		return true
	}
	return false
}

// shortNamePart filters one half (base or extension) of a name down to
// at most maxLen bytes, dropping spaces and dots, replacing anything
// outside the allowed set with '_', and upper-casing ASCII letters.
// lossy is set whenever a character was dropped or replaced; fits is
// cleared only when a surviving character had to be truncated.
func shortNamePart(part string, maxLen int) (out []byte, lossy bool, fits bool) {
	out = make([]byte, 0, maxLen)
	fits = true
	for _, r := range part {
		if r == ' ' || r == '.' {
			lossy = true
			continue
		}
		var b byte
		switch {
		case r >= 'a' && r <= 'z':
			b = byte(r-'a') + 'A'
		case isShortNameAllowedRune(r):
			b = byte(r)
		default:
			b = '_'
			lossy = true
		}
		if len(out) >= maxLen {
			fits = false
			continue
		}
		out = append(out, b)
	}
	return out, lossy, fits
}

// splitLastDot splits name on its final '.', the same convention the
// short-name generator's Phase A uses: base, ext. A name with no dot
// returns (name, "").
func splitLastDot(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// shortNameChecksum16 is the BSD-style rotate-right-16 checksum of a
// name's UTF-16 code units, used to build the "P HHHH ~d" collision
// suffix once the plain numeric suffix space is exhausted.
func shortNameChecksum16(name string) uint16 {
	var c uint16
	for _, u := range utf16le.Encode(name) {
		c = (c>>1 | c<<15) + u
	}
	return c
}

// ShortNameGenerator derives a collision-free 11-byte 8.3 short name
// from an arbitrary long name. Feed every sibling short name to
// AddExisting before calling Generate.
type ShortNameGenerator struct {
	derived     [11]byte
	basenameLen int
	lossy       bool
	nameFits    bool
	checksum16  uint16

	exactMatch         bool
	longPrefixBitmap   uint16
	prefixChksumBitmap uint16

	dotSpecial bool

	// literalOnly marks a generator built by NewLiteralShortNameGenerator:
	// Generate returns derived verbatim or fails, it never suffixes.
	literalOnly bool
}

// NewShortNameGenerator runs Phase A of the algorithm: deriving the
// base 11-byte candidate and recording whether it needed any lossy
// conversion or truncation.
func NewShortNameGenerator(name string) *ShortNameGenerator {
	g := &ShortNameGenerator{nameFits: true}
	if name == "." || name == ".." {
		g.dotSpecial = true
		for i := range g.derived {
			g.derived[i] = ' '
		}
		copy(g.derived[:], name)
		return g
	}

	base, ext := splitLastDot(name)
	baseBytes, baseLossy, baseFits := shortNamePart(base, 8)
	extBytes, extLossy, extFits := shortNamePart(ext, 3)

	g.basenameLen = len(baseBytes)
	g.lossy = baseLossy || extLossy
	g.nameFits = baseFits && extFits
	g.checksum16 = shortNameChecksum16(name)

	for i := range g.derived {
		g.derived[i] = ' '
	}
	copy(g.derived[0:8], baseBytes)
	copy(g.derived[8:11], extBytes)
	return g
}

// NewLiteralShortNameGenerator builds a generator around a caller-chosen
// 8.3 name instead of one derived from the long name, for preserving the
// exact on-disk short name of an entry carried over from another image
// (e.g. during a directory migration). Bytes outside ASCII in base or
// ext are mapped through the OEM code page the same way a decoded short
// name would round-trip back through it. Generate on the result never
// suffixes: it returns the literal name unless it collides, in which
// case it reports ErrAlreadyExists.
func NewLiteralShortNameGenerator(base, ext string) *ShortNameGenerator {
	g := &ShortNameGenerator{literalOnly: true}
	for i := range g.derived {
		g.derived[i] = ' '
	}
	copy(g.derived[0:8], codepage.FromUnicode(strings.ToUpper(base)))
	copy(g.derived[8:11], codepage.FromUnicode(strings.ToUpper(ext)))
	return g
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// matchLongPrefixDigit checks whether candidateBase (8 bytes) has the
// form P~d (P = the generator's own prefix, d a digit 1..9, the rest
// spaces) and returns d if so.
func (g *ShortNameGenerator) matchLongPrefixDigit(candidateBase []byte) (digit int, ok bool) {
	plen := minInt(g.basenameLen, 6)
	if !bytes.Equal(candidateBase[0:plen], g.derived[0:plen]) {
		return 0, false
	}
	if plen+2 > 8 || candidateBase[plen] != '~' {
		return 0, false
	}
	d := candidateBase[plen+1]
	if d < '1' || d > '9' {
		return 0, false
	}
	for _, c := range candidateBase[plen+2 : 8] {
		if c != ' ' {
			return 0, false
		}
	}
	return int(d - '0'), true
}

// matchPrefixChecksumDigit checks whether candidateBase (8 bytes) has
// the form P HHHH ~d (P the generator's 2-byte-or-shorter prefix, HHHH
// four hex digits, d a digit 1..9, the rest spaces) and returns d.
func (g *ShortNameGenerator) matchPrefixChecksumDigit(candidateBase []byte) (digit int, ok bool) {
	plen := minInt(g.basenameLen, 2)
	if !bytes.Equal(candidateBase[0:plen], g.derived[0:plen]) {
		return 0, false
	}
	if plen+6 > 8 {
		return 0, false
	}
	for _, c := range candidateBase[plen : plen+4] {
		if !isUpperHexDigit(c) {
			return 0, false
		}
	}
	if candidateBase[plen+4] != '~' {
		return 0, false
	}
	d := candidateBase[plen+5]
	if d < '1' || d > '9' {
		return 0, false
	}
	for _, c := range candidateBase[plen+6 : 8] {
		if c != ' ' {
			return 0, false
		}
	}
	return int(d - '0'), true
}

func isUpperHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

// AddExisting folds one sibling short name into the collision state.
// Call it once per entry already present in the target directory before
// calling Generate.
func (g *ShortNameGenerator) AddExisting(sfn [11]byte) {
	if g.dotSpecial {
		return
	}
	if sfn == g.derived {
		g.exactMatch = true
		return
	}
	if g.literalOnly {
		return
	}
	if !bytes.Equal(sfn[8:11], g.derived[8:11]) {
		return
	}
	if d, ok := g.matchLongPrefixDigit(sfn[0:8]); ok {
		g.longPrefixBitmap |= 1 << uint(d)
	}
	if d, ok := g.matchPrefixChecksumDigit(sfn[0:8]); ok {
		g.prefixChksumBitmap |= 1 << uint(d)
	}
}

// Generate runs Phase B and returns the final 11-byte short name, or
// ErrAlreadyExists once every numeric and checksum suffix slot is used.
func (g *ShortNameGenerator) Generate() ([11]byte, error) {
	if g.dotSpecial {
		return g.derived, nil
	}
	if g.literalOnly {
		if g.exactMatch {
			return [11]byte{}, ErrAlreadyExists
		}
		return g.derived, nil
	}
	if !g.lossy && g.nameFits && !g.exactMatch {
		return g.derived, nil
	}

	ext := g.derived[8:11]
	plen6 := minInt(g.basenameLen, 6)
	for d := 1; d <= 4; d++ {
		if g.longPrefixBitmap&(1<<uint(d)) != 0 {
			continue
		}
		var cand [11]byte
		for i := range cand {
			cand[i] = ' '
		}
		copy(cand[0:plen6], g.derived[0:plen6])
		cand[plen6] = '~'
		cand[plen6+1] = byte('0' + d)
		copy(cand[8:11], ext)
		return cand, nil
	}

	plen2 := minInt(g.basenameLen, 2)
	hex := []byte(fmt.Sprintf("%04X", g.checksum16))
	for d := 1; d <= 9; d++ {
		if g.prefixChksumBitmap&(1<<uint(d)) != 0 {
			continue
		}
		var cand [11]byte
		for i := range cand {
			cand[i] = ' '
		}
		copy(cand[0:plen2], g.derived[0:plen2])
		copy(cand[plen2:plen2+4], hex)
		cand[plen2+4] = '~'
		cand[plen2+5] = byte('0' + d)
		copy(cand[8:11], ext)
		return cand, nil
	}

	return [11]byte{}, ErrAlreadyExists
}
