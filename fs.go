package fat

import (
	"errors"
	"io"
	"log/slog"

	"github.com/oakbranch/vfat/internal/gpt"
	"github.com/oakbranch/vfat/internal/mbr"
)

// basicDataPartitionGUID is the Microsoft Basic Data Partition type GUID
// (EBD0A0A2-B9E5-4433-87C0-68B6B72699C7), stored mixed-endian as it
// appears on disk.
var basicDataPartitionGUID = [16]byte{
	0xA2, 0xA0, 0xD0, 0xEB, 0xE5, 0xB9, 0x33, 0x44,
	0x87, 0xC0, 0x68, 0xB6, 0xB7, 0x26, 0x99, 0xC7,
}

// Mode selects whether a mounted FS permits writes.
type Mode uint8

const (
	ModeReadWrite Mode = iota
	ModeReadOnly
)

// MountConfig configures FS.Mount/FS.MountPartition.
type MountConfig struct {
	Mode Mode
	Log  *slog.Logger
}

// FS is a mounted FAT volume: a block device, a cluster allocator, and
// the root directory. The directory subsystem types (Dir, DirStream,
// EntryIterator) only ever see FS through the fields they close over at
// construction time; FS itself is the one façade callers mount and hold.
type FS struct {
	bd        BlockDevice
	blockSize int
	alloc     ClusterAllocator
	fatBits   int
	mode      Mode
	log       *slog.Logger

	root *Dir
}

// Mount parses bd's boot sector, builds the cluster allocator, and
// opens the root directory. bd is assumed to start at sector 0 of the
// FAT volume itself (no partition table); use MountPartition to locate
// a partition on a whole-disk image first.
func Mount(bd SizedBlockDevice, cfg MountConfig) (*FS, error) {
	sector := make([]byte, 512)
	if _, err := bd.ReadBlocks(sector, 0); err != nil {
		return nil, err
	}
	bs, err := ToBootSector(sector)
	if err != nil {
		return nil, err
	}
	if !bs.Valid() {
		return nil, errors.New("fat: missing boot sector signature")
	}
	geom, err := ComputeGeometry(bs)
	if err != nil {
		return nil, err
	}
	if geom.BlockSize != bd.BlockSize() {
		return nil, errors.New("fat: boot sector block size disagrees with device")
	}

	alloc, err := NewFATTable(bd, geom.BlockSize, geom.FATStartBlock, geom.FATSizeBytes,
		geom.NumFATs, geom.Bits, geom.ClusterSize, geom.DataStartBlock, geom.NumClusters)
	if err != nil {
		return nil, err
	}

	fsys := &FS{bd: bd, blockSize: geom.BlockSize, alloc: alloc, fatBits: geom.Bits, mode: cfg.Mode, log: cfg.Log}

	var rootStream *DirStream
	if geom.Bits == 32 {
		rootStream = NewFileDirStream(NewFileStream(bd, geom.BlockSize, alloc, geom.RootCluster))
	} else {
		rootStream = NewRootDirStream(bd, geom.BlockSize, geom.RootDirStartBlock, geom.RootDirSizeBytes)
	}
	fsys.root = newDir(fsys, rootStream, geom.RootCluster, 0)
	fsys.info("mounted", slog.Int("fat_bits", geom.Bits), slog.Int("cluster_size", geom.ClusterSize))
	return fsys, nil
}

// MountPartition scans bd's MBR for the first FAT-typed partition and
// mounts it. A protective MBR entry (type 0xEE) signals a GPT-partitioned
// disk; callers should use MountGPTPartition for those instead.
func MountPartition(bd SizedBlockDevice, cfg MountConfig) (*FS, error) {
	sector := make([]byte, 512)
	if _, err := bd.ReadBlocks(sector, 0); err != nil {
		return nil, err
	}
	mbrSector, err := mbr.ToBootSector(sector)
	if err != nil {
		return nil, err
	}
	if !mbrSector.Valid() {
		return nil, errors.New("fat: missing MBR signature")
	}
	_, pte, found := mbrSector.FindFATPartition()
	if !found {
		return nil, ErrNotFound
	}
	section := NewSectionDevice(bd, bd.BlockSize(), int64(pte.StartLBA()), int64(pte.NumberOfLBA()))
	return Mount(section, cfg)
}

// MountGPTPartition reads the GPT header at LBA 1 and mounts the first
// partition entry whose type GUID is the Microsoft Basic Data Partition
// (the type a FAT-formatted GPT partition carries). It does not attempt
// to distinguish a FAT volume from some other Basic Data Partition
// content; Mount fails on the result if the boot sector doesn't check out.
func MountGPTPartition(bd SizedBlockDevice, cfg MountConfig) (*FS, error) {
	blockSize := bd.BlockSize()
	header := make([]byte, blockSize)
	if _, err := bd.ReadBlocks(header, 1); err != nil {
		return nil, err
	}
	hdr, err := gpt.ToHeader(header)
	if err != nil {
		return nil, err
	}
	if hdr.Signature() != 0x5452415020494645 {
		return nil, errors.New("fat: missing GPT header signature")
	}

	entrySize := int(hdr.SizeOfPartitionEntry())
	numEntries := int(hdr.NumberOfPartitionEntries())
	entriesPerBlock := blockSize / entrySize
	block := make([]byte, blockSize)
	for i := 0; i < numEntries; i++ {
		if i%entriesPerBlock == 0 {
			lba := hdr.PartitionEntryLBA() + int64(i/entriesPerBlock)
			if _, err := bd.ReadBlocks(block, lba); err != nil {
				return nil, err
			}
		}
		off := (i % entriesPerBlock) * entrySize
		pte, err := gpt.ToPartitionEntry(block[off : off+entrySize])
		if err != nil {
			return nil, err
		}
		if !pte.IsBasicData() {
			continue
		}
		firstLBA, lastLBA := pte.FirstLBA(), pte.LastLBA()
		section := NewSectionDevice(bd, blockSize, firstLBA, lastLBA-firstLBA+1)
		return Mount(section, cfg)
	}
	return nil, ErrNotFound
}

// Root returns the volume's root directory.
func (fsys *FS) Root() *Dir { return fsys.root }

// File is an open regular file: its directory entry plus a byte stream
// over its cluster chain, truncated to the entry's recorded size.
type File struct {
	dir   *Dir
	entry *LogicalEntry
	fs    *FileStream
}

// Open resolves path to a regular file and returns it ready for
// reading; writes additionally require the FS to have been mounted
// ModeReadWrite.
func (fsys *FS) Open(path string) (*File, error) {
	entry, dir, err := fsys.root.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return dir.openFileHandle(entry), nil
}

func (d *Dir) openFileHandle(entry *LogicalEntry) *File {
	stream := NewFileStream(d.fsys.bd, d.fsys.blockSize, d.fsys.alloc, entry.FirstCluster)
	return &File{dir: d, entry: entry, fs: stream}
}

// Create resolves path's parent and creates (or reuses) a regular file,
// returning it ready for writing.
func (fsys *FS) Create(path string) (*File, error) {
	entry, err := fsys.root.CreateFile(path)
	if err != nil {
		return nil, err
	}
	_, dir, err := fsys.root.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return dir.openFileHandle(entry), nil
}

func (f *File) Read(p []byte) (int, error) {
	remaining := int64(f.entry.Size) - f.fs.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	return f.fs.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	if f.dir.fsys.mode == ModeReadOnly {
		return 0, ErrReadOnly
	}
	n, err := f.fs.Write(p)
	if err != nil {
		return n, err
	}
	if end := uint32(f.fs.pos); end > f.entry.Size {
		f.entry.Size = end
		f.entry.FirstCluster = f.fs.FirstCluster()
	}
	return n, nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) { return f.fs.Seek(offset, whence) }

// Sync rewrites the file's SFN slot with its current size and first
// cluster, persisting growth performed by Write.
func (f *File) Sync() error {
	if f.dir.fsys.mode == ModeReadOnly {
		return ErrReadOnly
	}
	if !f.entry.AbsPosKnown {
		return errors.New("fat: file entry has no addressable slot")
	}
	var block [SlotSize]byte
	blk := f.entry.AbsPos / int64(f.dir.fsys.blockSize)
	off := f.entry.AbsPos % int64(f.dir.fsys.blockSize)
	buf := make([]byte, f.dir.fsys.blockSize)
	if _, err := f.dir.fsys.bd.ReadBlocks(buf, blk); err != nil {
		return err
	}
	copy(block[:], buf[off:off+SlotSize])
	slot := AsSfnSlot(block[:])
	slot.SetSize(f.entry.Size)
	slot.SetFirstCluster(f.dir.fsys.fatBits, f.entry.FirstCluster)
	copy(buf[off:off+SlotSize], block[:])
	_, err := f.dir.fsys.bd.WriteBlocks(buf, blk)
	return err
}
