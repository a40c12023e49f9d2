package fat

import "encoding/binary"

// SlotSize is the fixed length in bytes of every directory slot, SFN or
// LFN alike.
const SlotSize = 32

// Liveness sentinels stored in byte 0 of a slot.
const (
	slotEndMarker  = 0x00
	slotFreeMarker = 0xE5
	// slotFreeEscape is what a literal 0xE5 first name byte is rewritten
	// to on disk, so it is never confused with the free marker; readers
	// undo this substitution.
	slotFreeEscape = 0x05
)

// Attr is the attribute bitfield stored in byte 11 of an SFN slot.
type Attr uint8

const (
	AttrReadOnly  Attr = 0x01
	AttrHidden    Attr = 0x02
	AttrSystem    Attr = 0x04
	AttrVolumeID  Attr = 0x08
	AttrDirectory Attr = 0x10
	AttrArchive   Attr = 0x20

	// AttrLongName is the value (not a single bit) that marks a slot as
	// an LFN continuation rather than an SFN: all four of the
	// read-only/hidden/system/volume-id bits set together.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

func (a Attr) IsReadOnly() bool  { return a&AttrReadOnly != 0 }
func (a Attr) IsHidden() bool    { return a&AttrHidden != 0 }
func (a Attr) IsSystem() bool    { return a&AttrSystem != 0 }
func (a Attr) IsVolumeID() bool  { return a&AttrVolumeID != 0 }
func (a Attr) IsDirectory() bool { return a&AttrDirectory != 0 }
func (a Attr) IsArchive() bool   { return a&AttrArchive != 0 }

// SlotKind classifies one 32-byte directory slot.
type SlotKind uint8

const (
	SlotSFN SlotKind = iota
	SlotLFN
	SlotFree
	SlotEnd
	SlotVolumeLabel
)

// ClassifySlot inspects the liveness byte and attribute byte of a raw
// 32-byte slot and reports what kind of record it holds. b must be at
// least SlotSize bytes.
func ClassifySlot(b []byte) SlotKind {
	switch b[0] {
	case slotEndMarker:
		return SlotEnd
	case slotFreeMarker:
		return SlotFree
	}
	if Attr(b[11]) == AttrLongName {
		return SlotLFN
	}
	if Attr(b[11])&AttrVolumeID != 0 {
		return SlotVolumeLabel
	}
	return SlotSFN
}

// SfnSlot is a non-owning view over one 32-byte SFN directory slot.
type SfnSlot struct {
	b []byte
}

// AsSfnSlot views b (at least SlotSize bytes) as an SfnSlot.
func AsSfnSlot(b []byte) SfnSlot { return SfnSlot{b: b[:SlotSize:SlotSize]} }

// NewSfnSlot zeroes dst and returns it viewed as a fresh SfnSlot.
func NewSfnSlot(dst []byte) SfnSlot {
	s := AsSfnSlot(dst)
	for i := range s.b {
		s.b[i] = 0
	}
	return s
}

// Bytes returns the underlying 32-byte slot.
func (s SfnSlot) Bytes() []byte { return s.b }

// Name returns the raw 11-byte short name, space-padded, with the
// slotFreeEscape substitution undone if present.
func (s SfnSlot) Name() [11]byte {
	var name [11]byte
	copy(name[:], s.b[0:11])
	if name[0] == slotFreeEscape {
		name[0] = slotFreeMarker
	}
	return name
}

// SetName stores an 11-byte short name, escaping a literal 0xE5 leading
// byte so it is not mistaken for the free-slot marker.
func (s SfnSlot) SetName(name [11]byte) {
	copy(s.b[0:11], name[:])
	if s.b[0] == slotFreeMarker {
		s.b[0] = slotFreeEscape
	}
}

func (s SfnSlot) Attr() Attr        { return Attr(s.b[11]) }
func (s SfnSlot) SetAttr(a Attr)    { s.b[11] = byte(a) }
func (s SfnSlot) NTReserved() byte  { return s.b[12] }
func (s SfnSlot) SetNTReserved(v byte) { s.b[12] = v }

func (s SfnSlot) CreateTimeTenth() byte     { return s.b[13] }
func (s SfnSlot) SetCreateTimeTenth(v byte) { s.b[13] = v }
func (s SfnSlot) CreateTime() uint16        { return binary.LittleEndian.Uint16(s.b[14:16]) }
func (s SfnSlot) SetCreateTime(v uint16)    { binary.LittleEndian.PutUint16(s.b[14:16], v) }
func (s SfnSlot) CreateDate() uint16        { return binary.LittleEndian.Uint16(s.b[16:18]) }
func (s SfnSlot) SetCreateDate(v uint16)    { binary.LittleEndian.PutUint16(s.b[16:18], v) }
func (s SfnSlot) AccessDate() uint16        { return binary.LittleEndian.Uint16(s.b[18:20]) }
func (s SfnSlot) SetAccessDate(v uint16)    { binary.LittleEndian.PutUint16(s.b[18:20], v) }
func (s SfnSlot) ModTime() uint16           { return binary.LittleEndian.Uint16(s.b[22:24]) }
func (s SfnSlot) SetModTime(v uint16)       { binary.LittleEndian.PutUint16(s.b[22:24], v) }
func (s SfnSlot) ModDate() uint16           { return binary.LittleEndian.Uint16(s.b[24:26]) }
func (s SfnSlot) SetModDate(v uint16)       { binary.LittleEndian.PutUint16(s.b[24:26], v) }
func (s SfnSlot) Size() uint32              { return binary.LittleEndian.Uint32(s.b[28:32]) }
func (s SfnSlot) SetSize(v uint32)          { binary.LittleEndian.PutUint32(s.b[28:32], v) }

// FirstCluster returns the first cluster field, combining the high and
// low halves only when fatBits == 32: FAT12/16 volumes never populate
// the high half and a stray nonzero value there must not be trusted.
func (s SfnSlot) FirstCluster(fatBits int) uint32 {
	lo := uint32(binary.LittleEndian.Uint16(s.b[26:28]))
	if fatBits != 32 {
		return lo
	}
	hi := uint32(binary.LittleEndian.Uint16(s.b[20:22]))
	return hi<<16 | lo
}

// SetFirstCluster writes the first cluster field, splitting across the
// high/low halves only for fatBits == 32.
func (s SfnSlot) SetFirstCluster(fatBits int, cluster uint32) {
	binary.LittleEndian.PutUint16(s.b[26:28], uint16(cluster))
	if fatBits == 32 {
		binary.LittleEndian.PutUint16(s.b[20:22], uint16(cluster>>16))
	} else {
		binary.LittleEndian.PutUint16(s.b[20:22], 0)
	}
}

// MarkFree rewrites byte 0 to the free-slot sentinel, leaving the rest
// of the slot's bytes intact.
func (s SfnSlot) MarkFree() { s.b[0] = slotFreeMarker }

// LfnSlot is a non-owning view over one 32-byte VFAT long-name
// continuation slot.
type LfnSlot struct {
	b []byte
}

// AsLfnSlot views b (at least SlotSize bytes) as an LfnSlot.
func AsLfnSlot(b []byte) LfnSlot { return LfnSlot{b: b[:SlotSize:SlotSize]} }

// NewLfnSlot zeroes dst, sets the fixed LFN attribute and type bytes,
// and returns it viewed as a fresh LfnSlot.
func NewLfnSlot(dst []byte) LfnSlot {
	l := AsLfnSlot(dst)
	for i := range l.b {
		l.b[i] = 0
	}
	l.b[11] = byte(AttrLongName)
	return l
}

func (l LfnSlot) Bytes() []byte { return l.b }

// orderLastFlag marks the slot carrying the highest-numbered (logically
// last) chunk of the name.
const orderLastFlag = 0x40

// orderMask isolates the 1..20 sequence number from the last-entry flag.
const orderMask = 0x1F

func (l LfnSlot) Order() byte            { return l.b[0] }
func (l LfnSlot) SetOrder(v byte)        { l.b[0] = v }
func (l LfnSlot) SequenceNumber() int    { return int(l.b[0] & orderMask) }
func (l LfnSlot) IsLast() bool           { return l.b[0]&orderLastFlag != 0 }
func (l LfnSlot) Checksum() byte         { return l.b[13] }
func (l LfnSlot) SetChecksum(v byte)     { l.b[13] = v }

// Chars decodes the 13 UTF-16LE code units stored across the slot's
// three interleaved regions (5 + 6 + 2).
func (l LfnSlot) Chars() [13]uint16 {
	var out [13]uint16
	for i := 0; i < 5; i++ {
		out[i] = binary.LittleEndian.Uint16(l.b[1+2*i:])
	}
	for i := 0; i < 6; i++ {
		out[5+i] = binary.LittleEndian.Uint16(l.b[14+2*i:])
	}
	for i := 0; i < 2; i++ {
		out[11+i] = binary.LittleEndian.Uint16(l.b[28+2*i:])
	}
	return out
}

// SetChars writes 13 UTF-16LE code units into the slot's interleaved
// regions.
func (l LfnSlot) SetChars(chars [13]uint16) {
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint16(l.b[1+2*i:], chars[i])
	}
	for i := 0; i < 6; i++ {
		binary.LittleEndian.PutUint16(l.b[14+2*i:], chars[5+i])
	}
	for i := 0; i < 2; i++ {
		binary.LittleEndian.PutUint16(l.b[28+2*i:], chars[11+i])
	}
}

func (l LfnSlot) MarkFree() { l.b[0] = slotFreeMarker }
