package fat

import "io"

// DirStream is the byte-stream abstraction the directory API and entry
// iterator read and write slots through. It has two concrete variants:
// file-backed (a subdirectory living in a cluster chain) and
// root-backed (the FAT12/16 fixed-size root region). Both share
// read/write/seek and answer abs_pos; first_cluster is an optional
// query that only the file-backed variant answers meaningfully.
//
// Per the design note on polymorphic streams, this is a small tagged
// dispatch rather than two implementations hidden behind an interface
// with runtime type assertions scattered through calling code: every
// method here is a single switch on kind.
type DirStream struct {
	kind dirStreamKind

	file *FileStream // kind == dirStreamFile

	root      BlockDevice // kind == dirStreamRoot
	blockSize int
	startBlk  int64
	sizeBytes int64
	pos       int64
}

type dirStreamKind uint8

const (
	dirStreamFile dirStreamKind = iota
	dirStreamRoot
)

// NewFileDirStream wraps a cluster-chain FileStream as a DirStream.
func NewFileDirStream(fs *FileStream) *DirStream {
	return &DirStream{kind: dirStreamFile, file: fs}
}

// NewRootDirStream wraps the FAT12/16 fixed-size root directory region
// starting at startBlock and spanning sizeBytes (a multiple of
// blockSize) as a DirStream. Writes that would grow past sizeBytes fail
// with ErrReadOnly.
func NewRootDirStream(bd BlockDevice, blockSize int, startBlock int64, sizeBytes int64) *DirStream {
	return &DirStream{kind: dirStreamRoot, root: bd, blockSize: blockSize, startBlk: startBlock, sizeBytes: sizeBytes}
}

func (d *DirStream) Read(p []byte) (int, error) {
	if d.kind == dirStreamFile {
		return d.file.Read(p)
	}
	if d.pos >= d.sizeBytes {
		return 0, io.EOF
	}
	if int64(len(p)) > d.sizeBytes-d.pos {
		p = p[:d.sizeBytes-d.pos]
	}
	n, err := d.readRootAt(p, d.pos)
	d.pos += int64(n)
	return n, err
}

func (d *DirStream) Write(p []byte) (int, error) {
	if d.kind == dirStreamFile {
		return d.file.Write(p)
	}
	if d.pos+int64(len(p)) > d.sizeBytes {
		return 0, ErrReadOnly
	}
	n, err := d.writeRootAt(p, d.pos)
	d.pos += int64(n)
	return n, err
}

func (d *DirStream) Seek(offset int64, whence int) (int64, error) {
	if d.kind == dirStreamFile {
		return d.file.Seek(offset, whence)
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = d.pos
	case io.SeekEnd:
		base = d.sizeBytes
	default:
		return 0, errInvalidSeekWhence
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, errNegativeSeek
	}
	d.pos = newPos
	return newPos, nil
}

// AbsPos returns the absolute device byte offset of the stream's
// current position, when known. The root region always knows it; a
// file-backed stream reports ok == false when the position lies past
// the end of its cluster chain.
func (d *DirStream) AbsPos() (pos int64, ok bool) {
	if d.kind == dirStreamRoot {
		return d.startBlk*int64(d.blockSize) + d.pos, true
	}
	cluster, err := d.file.clusterAt(d.file.pos, false)
	if err != nil {
		return 0, false
	}
	offInCluster := d.file.pos % int64(d.file.clusterSize)
	blk := d.file.alloc.ClusterToBlock(cluster) + offInCluster/int64(d.file.blockSize)
	return blk*int64(d.file.blockSize) + offInCluster%int64(d.file.blockSize), true
}

// FirstCluster returns the directory's own first cluster, or ok==false
// for the root region (which has none).
func (d *DirStream) FirstCluster() (cluster uint32, ok bool) {
	if d.kind == dirStreamRoot {
		return 0, false
	}
	return d.file.FirstCluster(), true
}

func (d *DirStream) readRootAt(p []byte, off int64) (int, error) {
	return blockAlignedIO(p, d.startBlk, d.blockSize, off, false, d.root)
}

func (d *DirStream) writeRootAt(p []byte, off int64) (int, error) {
	return blockAlignedIO(p, d.startBlk, d.blockSize, off, true, d.root)
}

// blockAlignedIO performs a byte-range read or write against bd,
// handling offsets and lengths that are not multiples of blockSize by
// read-modify-writing (or just reading) one block at a time.
func blockAlignedIO(p []byte, startBlock int64, blockSize int, off int64, write bool, bd BlockDevice) (int, error) {
	total := 0
	block := make([]byte, blockSize)
	for len(p) > 0 {
		blk := startBlock + off/int64(blockSize)
		offInBlock := off % int64(blockSize)
		if write {
			if offInBlock != 0 || len(p) < blockSize {
				if _, err := bd.ReadBlocks(block, blk); err != nil {
					return total, err
				}
			}
			n := copy(block[offInBlock:], p)
			if _, err := bd.WriteBlocks(block, blk); err != nil {
				return total, err
			}
			p = p[n:]
			off += int64(n)
			total += n
		} else {
			if _, err := bd.ReadBlocks(block, blk); err != nil {
				return total, err
			}
			n := copy(p, block[offInBlock:])
			p = p[n:]
			off += int64(n)
			total += n
		}
	}
	return total, nil
}
