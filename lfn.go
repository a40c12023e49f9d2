package fat

import "github.com/oakbranch/vfat/internal/utf16le"

// lfnPartLen is the number of UTF-16 code units carried by one LFN slot.
const lfnPartLen = 13

// lfnChecksum computes the 8-bit rotate-sum checksum binding an LFN run
// to its SFN, per the on-disk format: for each of the 11 SFN name bytes,
// rotate the running checksum right by one bit and add the byte.
func lfnChecksum(sfnName [11]byte) byte {
	var chk byte
	for _, b := range sfnName {
		chk = (chk>>1 | chk<<7) + b
	}
	return chk
}

// lfnBuilder aggregates a run of LFN slots (encountered in on-disk,
// last-to-first order) into a UTF-16 buffer, validating sequencing and
// the bound checksum as it goes. Grounded on the long-name-builder state
// machine described for the entry iterator.
type lfnBuilder struct {
	buf           []uint16
	expectedIndex int
	checksum      byte
}

func (b *lfnBuilder) clear() {
	b.buf = nil
	b.expectedIndex = 0
	b.checksum = 0
}

// process folds one LFN slot into the builder. A corrupted or
// out-of-sequence slot resets the builder to empty rather than erroring:
// the iterator simply fails to produce a long name for the entry that
// follows.
func (b *lfnBuilder) process(slot LfnSlot) {
	order := slot.SequenceNumber()
	if order == 0 {
		b.clear()
		return
	}
	last := slot.IsLast()
	if last {
		b.buf = make([]uint16, order*lfnPartLen)
		b.checksum = slot.Checksum()
		b.expectedIndex = order
	} else {
		if b.expectedIndex == 0 || order != b.expectedIndex-1 || slot.Checksum() != b.checksum {
			b.clear()
			return
		}
		b.expectedIndex = order
	}
	chars := slot.Chars()
	base := (order - 1) * lfnPartLen
	copy(b.buf[base:base+lfnPartLen], chars[:])
}

// validateChecksum is called when a used SFN slot is reached. It
// confirms the accumulated run is complete (expectedIndex == 1) and
// matches the SFN's checksum, then returns the decoded long name with
// its trailing terminator/filler code units stripped.
func (b *lfnBuilder) validateChecksum(sfnName [11]byte) (name string, ok bool) {
	if b.buf == nil || b.expectedIndex != 1 {
		return "", false
	}
	if lfnChecksum(sfnName) != b.checksum {
		return "", false
	}
	end := len(b.buf)
	for end > 0 && (b.buf[end-1] == 0x0000 || b.buf[end-1] == 0xFFFF) {
		end--
	}
	return utf16le.Decode(b.buf[:end]), true
}

// lfnChunk is one slot's worth of an encoded long name, in the order it
// should be written to disk (logical-last chunk first).
type lfnChunk struct {
	Order byte
	Chars [13]uint16
}

// encodeLFNChunks splits units into ceil(len/13) chunks and returns them
// in write order: the slot carrying the 0x40 last-entry flag first,
// descending to order 1 last. The final logical chunk (the one holding
// the tail of the name) is padded with a single 0x0000 terminator
// followed by 0xFFFF filler, unless the name length is an exact multiple
// of 13, in which case every slot is entirely real characters.
func encodeLFNChunks(units []uint16) []lfnChunk {
	n := len(units)
	k := (n + lfnPartLen - 1) / lfnPartLen
	if k == 0 {
		k = 1
	}
	logical := make([]lfnChunk, k)
	for i := 0; i < k; i++ {
		start := i * lfnPartLen
		var chars [13]uint16
		if i == k-1 {
			remaining := n - start
			copy(chars[:remaining], units[start:n])
			if remaining < lfnPartLen {
				chars[remaining] = 0x0000
				for j := remaining + 1; j < lfnPartLen; j++ {
					chars[j] = 0xFFFF
				}
			}
		} else {
			copy(chars[:], units[start:start+lfnPartLen])
		}
		order := byte(i + 1)
		if i == k-1 {
			order |= orderLastFlag
		}
		logical[i] = lfnChunk{Order: order, Chars: chars}
	}
	out := make([]lfnChunk, k)
	for i := 0; i < k; i++ {
		out[i] = logical[k-1-i]
	}
	return out
}
