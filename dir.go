package fat

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/oakbranch/vfat/internal/utf16le"
)

// EntryKind restricts findEntry/open_dir/open_file/create_file/create_dir
// to a specific kind of entry, or accepts either.
type EntryKind uint8

const (
	KindAny EntryKind = iota
	KindFile
	KindDir
)

func kindMatches(filter EntryKind, attr Attr) bool {
	switch filter {
	case KindFile:
		return !attr.IsDirectory()
	case KindDir:
		return attr.IsDirectory()
	default:
		return true
	}
}

// splitPath trims leading/trailing slashes and splits on the first
// remaining one: split_path("aaa/bbb/ccc") -> ("aaa", "bbb/ccc", true).
func splitPath(path string) (head, rest string, hasRest bool) {
	path = strings.Trim(path, "/")
	i := strings.IndexByte(path, '/')
	if i < 0 {
		return path, "", false
	}
	return path[:i], strings.TrimLeft(path[i+1:], "/"), true
}

// equalFoldASCII is ASCII-only case-insensitive equality: no Unicode
// case folding or normalization, matching the directory API's
// deliberately narrow name-comparison rule.
func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// sfnPayload carries everything write_entry needs beyond the name
// itself: the fields that land directly in the SFN slot.
type sfnPayload struct {
	attr         Attr
	firstCluster uint32
	size         uint32

	createTimeTenth byte
	createTime      uint16
	createDate      uint16
	accessDate      uint16
	modTime         uint16
	modDate         uint16
}

// Dir is one open directory: a stream positioned over its slots, plus
// enough cluster bookkeeping to open children and fill in "..".
type Dir struct {
	fsys   *FS
	stream *DirStream

	ownCluster    uint32 // 0 for the root directory
	parentCluster uint32 // the cluster ".." should point at; 0 means root
}

// newDir wraps an already-positioned stream as a Dir. Used by FS.Mount
// for the root and by Dir itself when descending into subdirectories.
func newDir(fsys *FS, stream *DirStream, ownCluster, parentCluster uint32) *Dir {
	return &Dir{fsys: fsys, stream: stream, ownCluster: ownCluster, parentCluster: parentCluster}
}

// iter returns a fresh EntryIterator over this directory's slots.
func (d *Dir) iter() (*EntryIterator, error) {
	if _, err := d.stream.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return NewEntryIterator(d.stream, d.fsys.fatBits), nil
}

// ForEachEntry walks dir's live entries in on-disk order, calling fn for
// each. Iteration stops early, returning fn's error, the first time fn
// returns non-nil.
func ForEachEntry(dir *Dir, fn func(*LogicalEntry) error) error {
	it, err := dir.iter()
	if err != nil {
		return err
	}
	for {
		e, err := it.Next()
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// findEntry walks iter, comparing name case-insensitively against both
// the long and short names of each live entry. Every SFN encountered
// along the way is fed to gen (if non-nil) before the match completes,
// so a failed find_entry leaves gen ready to resolve collisions for a
// freshly created sibling. Returns ErrNotFound when the stream ends,
// or a kind-mismatch error when found but filter disagrees.
func (d *Dir) findEntry(name string, filter EntryKind, gen *ShortNameGenerator) (*LogicalEntry, error) {
	it, err := d.iter()
	if err != nil {
		return nil, err
	}
	for {
		e, err := it.Next()
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, ErrNotFound
		}
		if gen != nil {
			gen.AddExisting(e.ShortName)
		}
		matches := equalFoldASCII(name, shortNameToDisplay(e.ShortName))
		if !matches && e.LongName != "" {
			matches = equalFoldASCII(name, e.LongName)
		}
		if !matches {
			continue
		}
		if !kindMatches(filter, e.Attr) {
			if filter == KindDir {
				return nil, ErrNotDirectory
			}
			return nil, ErrIsDirectory
		}
		return e, nil
	}
}

func (d *Dir) openChildDir(e *LogicalEntry) (*Dir, error) {
	if !e.Attr.IsDirectory() {
		return nil, ErrNotDirectory
	}
	return d.openChildDirByCluster(e.FirstCluster), nil
}

func (d *Dir) openChildDirByCluster(cluster uint32) *Dir {
	fstream := NewFileStream(d.fsys.bd, d.fsys.blockSize, d.fsys.alloc, cluster)
	return newDir(d.fsys, NewFileDirStream(fstream), cluster, d.ownCluster)
}

// OpenDir resolves path as a head-recursive walk where every component,
// including the last, must be a directory. An empty path resolves to d
// itself.
func (d *Dir) OpenDir(path string) (*Dir, error) {
	head, tail, hasTail := splitPath(path)
	if head == "" {
		return d, nil
	}
	e, err := d.findEntry(head, KindDir, nil)
	if err != nil {
		return nil, err
	}
	sub, err := d.openChildDir(e)
	if err != nil {
		return nil, err
	}
	if !hasTail {
		return sub, nil
	}
	return sub.OpenDir(tail)
}

// OpenFile resolves path as a head-recursive walk where every component
// but the last must be a directory and the last must be a file. It
// returns the matched entry and the directory that contains it, so
// callers can build a FileStream over it or rewrite its slot in place.
func (d *Dir) OpenFile(path string) (*LogicalEntry, *Dir, error) {
	head, tail, hasTail := splitPath(path)
	if head == "" {
		return nil, nil, ErrInvalidInput
	}
	if !hasTail {
		e, err := d.findEntry(head, KindFile, nil)
		if err != nil {
			return nil, nil, err
		}
		return e, d, nil
	}
	e, err := d.findEntry(head, KindDir, nil)
	if err != nil {
		return nil, nil, err
	}
	sub, err := d.openChildDir(e)
	if err != nil {
		return nil, nil, err
	}
	return sub.OpenFile(tail)
}

// resolveParent walks every component but the last (each must be a
// directory) and returns the containing Dir plus the leaf name.
func (d *Dir) resolveParent(path string) (*Dir, string, error) {
	head, tail, hasTail := splitPath(path)
	if head == "" {
		return nil, "", ErrInvalidInput
	}
	if !hasTail {
		return d, head, nil
	}
	e, err := d.findEntry(head, KindDir, nil)
	if err != nil {
		return nil, "", err
	}
	sub, err := d.openChildDir(e)
	if err != nil {
		return nil, "", err
	}
	return sub.resolveParent(tail)
}

// CreateFile walks to path's parent and returns the existing file entry
// if one is already there, otherwise synthesizes a fresh zero-length
// one with no first cluster.
func (d *Dir) CreateFile(path string) (*LogicalEntry, error) {
	parent, leaf, err := d.resolveParent(path)
	if err != nil {
		return nil, err
	}
	gen := NewShortNameGenerator(leaf)
	if e, err := parent.findEntry(leaf, KindFile, gen); err == nil {
		return e, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return parent.writeEntry(leaf, gen, sfnPayload{})
}

// CreateFileWithShortName is like CreateFile, but pins the entry's 8.3
// name to shortBase/shortExt instead of letting it be derived from path.
// This exists for carrying a file over from a source image byte-for-byte
// (the exact short name other software may already depend on) while
// still recording path as its long name.
func (d *Dir) CreateFileWithShortName(path, shortBase, shortExt string) (*LogicalEntry, error) {
	parent, leaf, err := d.resolveParent(path)
	if err != nil {
		return nil, err
	}
	gen := NewLiteralShortNameGenerator(shortBase, shortExt)
	if e, err := parent.findEntry(leaf, KindFile, gen); err == nil {
		return e, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return parent.writeEntry(leaf, gen, sfnPayload{})
}

// CreateDir walks to path's parent and returns the existing directory
// entry if one is already there, otherwise allocates a cluster, writes
// the new directory's own SFN, and populates "." and ".." inside it.
func (d *Dir) CreateDir(path string) (*LogicalEntry, error) {
	if d.fsys.mode == ModeReadOnly {
		return nil, ErrReadOnly
	}
	parent, leaf, err := d.resolveParent(path)
	if err != nil {
		return nil, err
	}
	gen := NewShortNameGenerator(leaf)
	if e, err := parent.findEntry(leaf, KindDir, gen); err == nil {
		return e, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	cluster, err := parent.fsys.alloc.Alloc(0)
	if err != nil {
		return nil, err
	}
	entry, err := parent.writeEntry(leaf, gen, sfnPayload{attr: AttrDirectory, firstCluster: cluster})
	if err != nil {
		return nil, err
	}

	child := parent.openChildDirByCluster(cluster)
	if _, err := child.writeEntry(".", NewShortNameGenerator("."), sfnPayload{attr: AttrDirectory, firstCluster: cluster}); err != nil {
		return nil, err
	}
	if _, err := child.writeEntry("..", NewShortNameGenerator(".."), sfnPayload{attr: AttrDirectory, firstCluster: parent.ownCluster}); err != nil {
		return nil, err
	}
	return entry, nil
}

// isEmpty reports whether this directory holds anything besides "."
// and "..".
func (d *Dir) isEmpty() (bool, error) {
	it, err := d.iter()
	if err != nil {
		return false, err
	}
	for {
		e, err := it.Next()
		if err != nil {
			return false, err
		}
		if e == nil {
			return true, nil
		}
		name := e.Name()
		if name != "." && name != ".." {
			return false, nil
		}
	}
}

// Remove locates path (of any kind); a directory must be empty. The
// target's cluster chain, if any, is freed and every slot in its
// offset range is marked free in place.
func (d *Dir) Remove(path string) error {
	if d.fsys.mode == ModeReadOnly {
		return ErrReadOnly
	}
	parent, leaf, err := d.resolveParent(path)
	if err != nil {
		return err
	}
	e, err := parent.findEntry(leaf, KindAny, nil)
	if err != nil {
		return err
	}
	if e.Attr.IsDirectory() {
		child, err := parent.openChildDir(e)
		if err != nil {
			return err
		}
		empty, err := child.isEmpty()
		if err != nil {
			return err
		}
		if !empty {
			return ErrNotEmpty
		}
	}
	if e.FirstCluster != 0 {
		if err := parent.fsys.alloc.FreeChain(e.FirstCluster); err != nil {
			return err
		}
	}
	return parent.markSlotsFree(e.OffsetStart, e.OffsetEnd)
}

// markSlotsFree rewrites byte 0 of every 32-byte slot in [start, end)
// to the free-slot sentinel, leaving the rest of each slot untouched.
func (d *Dir) markSlotsFree(start, end int64) error {
	marker := [1]byte{slotFreeMarker}
	for off := start; off < end; off += SlotSize {
		if _, err := d.stream.Seek(off, io.SeekStart); err != nil {
			return err
		}
		if _, err := d.stream.Write(marker[:]); err != nil {
			return err
		}
	}
	return nil
}

// Rename resolves src under d and dst under dstDir (which may equal d
// for a same-directory rename), verifies the destination name is free,
// frees the source's slots, and writes a new logical entry at the
// destination carrying the source's payload under a freshly generated
// short name. The source's first cluster and size are preserved.
func (d *Dir) Rename(srcPath string, dstDir *Dir, dstPath string) (*LogicalEntry, error) {
	if d.fsys.mode == ModeReadOnly {
		return nil, ErrReadOnly
	}
	srcParent, srcLeaf, err := d.resolveParent(srcPath)
	if err != nil {
		return nil, err
	}
	dstParent, dstLeaf, err := dstDir.resolveParent(dstPath)
	if err != nil {
		return nil, err
	}

	e, err := srcParent.findEntry(srcLeaf, KindAny, nil)
	if err != nil {
		return nil, err
	}

	gen := NewShortNameGenerator(dstLeaf)
	if _, err := dstParent.findEntry(dstLeaf, KindAny, gen); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := srcParent.markSlotsFree(e.OffsetStart, e.OffsetEnd); err != nil {
		return nil, err
	}

	payload := sfnPayload{
		attr: e.Attr, firstCluster: e.FirstCluster, size: e.Size,
		createTimeTenth: e.CreateTimeTenth, createTime: e.CreateTime, createDate: e.CreateDate,
		accessDate: e.AccessDate, modTime: e.ModTime, modDate: e.ModDate,
	}
	return dstParent.writeEntry(dstLeaf, gen, payload)
}

// writeEntry validates name, derives its short name from gen, encodes
// the k LFN slots (k = ceil(utf16 length / 13)) plus one SFN slot,
// reserves k+1 contiguous free slots, and writes them. Per the
// omit-when-lossless option, the LFN run is skipped entirely when the
// name needed no lossy conversion and already fits 8.3 (dot/dot-dot
// entries always take this path).
func (d *Dir) writeEntry(name string, gen *ShortNameGenerator, payload sfnPayload) (*LogicalEntry, error) {
	if d.fsys.mode == ModeReadOnly {
		return nil, ErrReadOnly
	}
	if name != "." && name != ".." {
		if err := ValidateLongName(name); err != nil {
			return nil, err
		}
	}
	sfn, err := gen.Generate()
	if err != nil {
		return nil, err
	}

	omitLFN := gen.dotSpecial || (!gen.lossy && gen.nameFits)
	var chunks []lfnChunk
	numSlots := 1
	if !omitLFN {
		chunks = encodeLFNChunks(utf16le.Encode(name))
		numSlots = len(chunks) + 1
	}

	startSlot, err := FindFreeSlots(d.stream, numSlots)
	if err != nil {
		return nil, err
	}
	startOffset := int64(startSlot) * SlotSize

	checksum := lfnChecksum(sfn)
	buf := make([]byte, numSlots*SlotSize)
	idx := 0
	for _, c := range chunks {
		slot := NewLfnSlot(buf[idx*SlotSize : (idx+1)*SlotSize])
		slot.SetOrder(c.Order)
		slot.SetChecksum(checksum)
		slot.SetChars(c.Chars)
		idx++
	}
	sfnSlot := NewSfnSlot(buf[idx*SlotSize : (idx+1)*SlotSize])
	sfnSlot.SetName(sfn)
	sfnSlot.SetAttr(payload.attr)
	sfnSlot.SetFirstCluster(d.fsys.fatBits, payload.firstCluster)
	sfnSlot.SetSize(payload.size)
	sfnSlot.SetCreateTimeTenth(payload.createTimeTenth)
	sfnSlot.SetCreateTime(payload.createTime)
	sfnSlot.SetCreateDate(payload.createDate)
	sfnSlot.SetAccessDate(payload.accessDate)
	sfnSlot.SetModTime(payload.modTime)
	sfnSlot.SetModDate(payload.modDate)

	if _, err := d.stream.Seek(startOffset, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := d.stream.Write(buf); err != nil {
		return nil, err
	}

	sfnOffset := startOffset + int64(len(buf)) - SlotSize
	var absPos int64
	var absOk bool
	if _, err := d.stream.Seek(sfnOffset, io.SeekStart); err == nil {
		absPos, absOk = d.stream.AbsPos()
	}

	entry := &LogicalEntry{
		ShortName:       sfn,
		Attr:            payload.attr,
		FirstCluster:    payload.firstCluster,
		Size:            payload.size,
		CreateTimeTenth: payload.createTimeTenth,
		CreateTime:      payload.createTime,
		CreateDate:      payload.createDate,
		AccessDate:      payload.accessDate,
		ModTime:         payload.modTime,
		ModDate:         payload.modDate,
		OffsetStart:     startOffset,
		OffsetEnd:       startOffset + int64(len(buf)),
		AbsPos:          absPos,
		AbsPosKnown:     absOk,
	}
	if !omitLFN {
		entry.LongName = name
	}
	d.fsys.debug("write_entry", slog.String("name", name), slog.String("sfn", entry.ShortNameOEM()), slog.Int("slots", numSlots))
	return entry, nil
}
