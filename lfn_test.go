package fat

import (
	"testing"

	"github.com/oakbranch/vfat/internal/utf16le"
)

func TestLfnChecksumOverflowSafe(t *testing.T) {
	var name [11]byte
	for i := range name {
		name[i] = 0xFF
	}
	// The rotate-sum checksum wraps mod 256 by construction (plain byte
	// arithmetic); this just pins a value so a future change to the
	// rotate direction or operand order gets caught.
	got := lfnChecksum(name)
	want := byte(0)
	chk := byte(0)
	for _, b := range name {
		chk = (chk>>1 | chk<<7) + b
	}
	want = chk
	if got != want {
		t.Fatalf("lfnChecksum(0xFF*11) = %#x, want %#x", got, want)
	}
}

func TestLfnChecksumDeterministic(t *testing.T) {
	sfn := [11]byte{'F', 'O', 'O', ' ', ' ', ' ', ' ', ' ', 'B', 'A', 'R'}
	c1 := lfnChecksum(sfn)
	c2 := lfnChecksum(sfn)
	if c1 != c2 {
		t.Fatal("lfnChecksum is not deterministic")
	}
}

func TestEncodeLFNChunksRoundTrip(t *testing.T) {
	name := "a reasonably long file name.txt"
	units := utf16le.Encode(name)
	chunks := encodeLFNChunks(units)

	wantChunks := (len(units) + lfnPartLen - 1) / lfnPartLen
	if len(chunks) != wantChunks {
		t.Fatalf("got %d chunks, want %d", len(chunks), wantChunks)
	}
	if chunks[0].Order&orderLastFlag == 0 {
		t.Fatal("first written chunk must carry the last-entry flag")
	}
	if chunks[len(chunks)-1].Order != 1 {
		t.Fatalf("last written chunk must have order 1, got %d", chunks[len(chunks)-1].Order)
	}

	sfn := [11]byte{'F', 'O', 'O', ' ', ' ', ' ', ' ', ' ', 'T', 'X', 'T'}
	checksum := lfnChecksum(sfn)

	var b lfnBuilder
	for _, c := range chunks {
		var slotBuf [SlotSize]byte
		slot := NewLfnSlot(slotBuf[:])
		slot.SetOrder(c.Order)
		slot.SetChecksum(checksum)
		slot.SetChars(c.Chars)
		b.process(slot)
	}
	got, ok := b.validateChecksum(sfn)
	if !ok {
		t.Fatal("validateChecksum rejected a freshly encoded run")
	}
	if got != name {
		t.Fatalf("decoded name = %q, want %q", got, name)
	}
}

func TestEncodeLFNChunksExactMultipleOfThirteen(t *testing.T) {
	name := "thirteen char"
	if len(name) != lfnPartLen {
		t.Fatalf("fixture name must be exactly %d runes", lfnPartLen)
	}
	units := utf16le.Encode(name)
	chunks := encodeLFNChunks(units)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	for _, u := range chunks[0].Chars {
		if u == 0x0000 || u == 0xFFFF {
			t.Fatal("an exact 13-unit chunk must be entirely real characters, no terminator or filler")
		}
	}
}

func TestLfnBuilderRejectsBadChecksum(t *testing.T) {
	name := "short.txt"
	units := utf16le.Encode(name)
	chunks := encodeLFNChunks(units)

	var b lfnBuilder
	for _, c := range chunks {
		var slotBuf [SlotSize]byte
		slot := NewLfnSlot(slotBuf[:])
		slot.SetOrder(c.Order)
		slot.SetChecksum(0xAB) // wrong on purpose
		slot.SetChars(c.Chars)
		b.process(slot)
	}
	sfn := [11]byte{'S', 'H', 'O', 'R', 'T', ' ', ' ', ' ', 'T', 'X', 'T'}
	if _, ok := b.validateChecksum(sfn); ok {
		t.Fatal("validateChecksum accepted a run with the wrong checksum")
	}
}

func TestLfnBuilderRejectsOutOfSequenceRun(t *testing.T) {
	name := "a reasonably long file name.txt"
	chunks := encodeLFNChunks(utf16le.Encode(name))
	if len(chunks) < 3 {
		t.Fatal("fixture name must require at least three LFN slots")
	}
	sfn := [11]byte{'F', 'O', 'O', ' ', ' ', ' ', ' ', ' ', 'T', 'X', 'T'}
	checksum := lfnChecksum(sfn)

	var b lfnBuilder
	// Feed only the last-flagged slot, then skip straight to order 1:
	// the run is incomplete and must not validate.
	var first [SlotSize]byte
	slot := NewLfnSlot(first[:])
	slot.SetOrder(chunks[0].Order)
	slot.SetChecksum(checksum)
	slot.SetChars(chunks[0].Chars)
	b.process(slot)

	var last [SlotSize]byte
	slot2 := NewLfnSlot(last[:])
	slot2.SetOrder(chunks[len(chunks)-1].Order)
	slot2.SetChecksum(checksum)
	slot2.SetChars(chunks[len(chunks)-1].Chars)
	b.process(slot2)

	if _, ok := b.validateChecksum(sfn); ok {
		t.Fatal("validateChecksum accepted a run missing intermediate slots")
	}
}
