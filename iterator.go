package fat

import (
	"io"

	"github.com/oakbranch/vfat/internal/codepage"
)

// LogicalEntry is the user-visible directory entry assembled from one
// SFN slot plus the LFN run (if any) immediately preceding it.
type LogicalEntry struct {
	ShortName [11]byte
	LongName  string // "" when no (valid) LFN run preceded the SFN
	Attr      Attr

	FirstCluster uint32
	Size         uint32

	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	AccessDate      uint16
	ModTime         uint16
	ModDate         uint16

	// OffsetStart/OffsetEnd span every slot (LFN run + SFN) that
	// represents this entry, as byte offsets within the parent
	// directory stream.
	OffsetStart int64
	OffsetEnd   int64

	// AbsPos is the absolute device byte offset of the SFN slot, used
	// for in-place updates (rename, mark-free). AbsPosKnown is false
	// only when the stream could not report that offset (a file-backed
	// position past the end of its cluster chain).
	AbsPos      int64
	AbsPosKnown bool
}

// HasLongName reports whether this entry decoded a valid VFAT long
// name; when false, Name() falls back to the short name.
func (e *LogicalEntry) HasLongName() bool { return e.LongName != "" }

// Name returns the long name when present, otherwise the short name
// rendered as "BASE.EXT" (or "BASE" with no extension), trimmed of
// padding spaces.
func (e *LogicalEntry) Name() string {
	if e.LongName != "" {
		return e.LongName
	}
	return shortNameToDisplay(e.ShortName)
}

func shortNameToDisplay(sfn [11]byte) string {
	base := trimSpaceRight(sfn[0:8])
	ext := trimSpaceRight(sfn[8:11])
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// ShortNameOEM renders the short name through CodePage 437, the way a
// DOS-era directory listing would show it, for logging and diagnostics
// where the ASCII-only shortNameToDisplay rendering would mangle any
// byte above 0x7F.
func (e *LogicalEntry) ShortNameOEM() string {
	base := codepage.ToUnicode(trimOEMSpaceRight(e.ShortName[0:8]))
	ext := codepage.ToUnicode(trimOEMSpaceRight(e.ShortName[8:11]))
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func trimOEMSpaceRight(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return b[:end]
}

func trimSpaceRight(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// EntryIterator walks a DirStream from its current position, pairing
// LFN runs with the SFN that follows them and yielding one LogicalEntry
// per used slot. It latches any deserialization error and never yields
// again afterward.
type EntryIterator struct {
	stream  *DirStream
	fatBits int
	builder lfnBuilder
	err     error
}

// NewEntryIterator starts an iterator at stream's current position.
// fatBits (12/16/32) is needed to decode the first-cluster field.
func NewEntryIterator(stream *DirStream, fatBits int) *EntryIterator {
	return &EntryIterator{stream: stream, fatBits: fatBits}
}

func (it *EntryIterator) pos() (int64, error) {
	return it.stream.Seek(0, io.SeekCurrent)
}

// Next returns the next logical entry, or (nil, nil) at a clean
// end-of-directory, or (nil, err) once a deserialization error has
// latched.
func (it *EntryIterator) Next() (*LogicalEntry, error) {
	if it.err != nil {
		return nil, it.err
	}
	beginOffset, err := it.pos()
	if err != nil {
		it.err = err
		return nil, err
	}
	for {
		slotOffset, err := it.pos()
		if err != nil {
			it.err = err
			return nil, err
		}
		absPos, absOk := it.stream.AbsPos()

		var buf [SlotSize]byte
		_, err = io.ReadFull(it.stream, buf[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil
		}
		if err != nil {
			it.err = err
			return nil, err
		}

		switch ClassifySlot(buf[:]) {
		case SlotEnd:
			return nil, nil

		case SlotFree, SlotVolumeLabel:
			it.builder.clear()
			beginOffset = slotOffset + SlotSize

		case SlotLFN:
			it.builder.process(AsLfnSlot(buf[:]))

		case SlotSFN:
			sfn := AsSfnSlot(buf[:])
			name := sfn.Name()
			longName, hasLong := it.builder.validateChecksum(name)
			it.builder.clear()

			entry := &LogicalEntry{
				ShortName:       name,
				Attr:            sfn.Attr(),
				FirstCluster:    sfn.FirstCluster(it.fatBits),
				Size:            sfn.Size(),
				CreateTimeTenth: sfn.CreateTimeTenth(),
				CreateTime:      sfn.CreateTime(),
				CreateDate:      sfn.CreateDate(),
				AccessDate:      sfn.AccessDate(),
				ModTime:         sfn.ModTime(),
				ModDate:         sfn.ModDate(),
				OffsetStart:     beginOffset,
				OffsetEnd:       slotOffset + SlotSize,
				AbsPos:          absPos,
				AbsPosKnown:     absOk,
			}
			if hasLong {
				entry.LongName = longName
			}
			return entry, nil
		}
	}
}
