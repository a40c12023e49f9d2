package fat

import "io"

// FileStream implements io.ReadWriteSeeker over a cluster chain. It
// backs both the file-backed DirStream variant and regular file
// contents (File); its capacity grows one cluster at a time as writes run
// past the current chain length, via the ClusterAllocator.
//
// Unlike a regular file, a FileStream has no independently tracked byte
// length: its capacity is exactly the chain length in clusters. Callers
// that need a byte-accurate size (regular files) track it separately in
// the SFN slot and must not Read past it themselves.
type FileStream struct {
	bd          BlockDevice
	blockSize   int
	clusterSize int
	alloc       ClusterAllocator
	first       uint32
	pos         int64
}

// NewFileStream wraps the cluster chain starting at first (0 meaning
// "empty, not yet allocated") as a byte stream.
func NewFileStream(bd BlockDevice, blockSize int, alloc ClusterAllocator, first uint32) *FileStream {
	return &FileStream{bd: bd, blockSize: blockSize, clusterSize: alloc.ClusterSize(), alloc: alloc, first: first}
}

// FirstCluster returns the chain's head cluster, or 0 if nothing has
// been allocated yet.
func (f *FileStream) FirstCluster() uint32 { return f.first }

func (f *FileStream) capacity() (int64, error) {
	if f.first == 0 {
		return 0, nil
	}
	n := int64(f.clusterSize)
	c := f.first
	for {
		next, eoc, err := f.alloc.Next(c)
		if err != nil {
			return 0, err
		}
		if eoc {
			return n, nil
		}
		n += int64(f.clusterSize)
		c = next
	}
}

// clusterAt walks the chain to the cluster holding byte offset off,
// extending the chain with newly allocated clusters if grow is true and
// off lies past the current end.
func (f *FileStream) clusterAt(off int64, grow bool) (uint32, error) {
	target := int(off / int64(f.clusterSize))
	if f.first == 0 {
		if !grow {
			return 0, io.EOF
		}
		c, err := f.alloc.Alloc(0)
		if err != nil {
			return 0, err
		}
		f.first = c
	}
	c := f.first
	for i := 0; i < target; i++ {
		next, eoc, err := f.alloc.Next(c)
		if err != nil {
			return 0, err
		}
		if eoc {
			if !grow {
				return 0, io.EOF
			}
			next, err = f.alloc.Alloc(c)
			if err != nil {
				return 0, err
			}
		}
		c = next
	}
	return c, nil
}

func (f *FileStream) Read(p []byte) (int, error) {
	cap, err := f.capacity()
	if err != nil {
		return 0, err
	}
	if f.pos >= cap {
		return 0, io.EOF
	}
	total := 0
	block := make([]byte, f.blockSize)
	for len(p) > 0 && f.pos < cap {
		cluster, err := f.clusterAt(f.pos, false)
		if err != nil {
			return total, err
		}
		offInCluster := f.pos % int64(f.clusterSize)
		blockIdx := offInCluster / int64(f.blockSize)
		offInBlock := offInCluster % int64(f.blockSize)
		blk := f.alloc.ClusterToBlock(cluster) + blockIdx
		if _, err := f.bd.ReadBlocks(block, blk); err != nil {
			return total, err
		}
		n := copy(p, block[offInBlock:])
		remaining := cap - f.pos
		if int64(n) > remaining {
			n = int(remaining)
		}
		p = p[n:]
		f.pos += int64(n)
		total += n
	}
	return total, nil
}

func (f *FileStream) Write(p []byte) (int, error) {
	total := 0
	block := make([]byte, f.blockSize)
	for len(p) > 0 {
		cluster, err := f.clusterAt(f.pos, true)
		if err != nil {
			return total, err
		}
		offInCluster := f.pos % int64(f.clusterSize)
		blockIdx := offInCluster / int64(f.blockSize)
		offInBlock := offInCluster % int64(f.blockSize)
		blk := f.alloc.ClusterToBlock(cluster) + blockIdx
		if offInBlock != 0 || len(p) < f.blockSize {
			if _, err := f.bd.ReadBlocks(block, blk); err != nil {
				return total, err
			}
		}
		n := copy(block[offInBlock:], p)
		if _, err := f.bd.WriteBlocks(block, blk); err != nil {
			return total, err
		}
		p = p[n:]
		f.pos += int64(n)
		total += n
	}
	return total, nil
}

func (f *FileStream) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		cap, err := f.capacity()
		if err != nil {
			return 0, err
		}
		base = cap
	default:
		return 0, errInvalidSeekWhence
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, errNegativeSeek
	}
	f.pos = newPos
	return newPos, nil
}

var (
	errInvalidSeekWhence = seekError("fat: invalid seek whence")
	errNegativeSeek      = seekError("fat: negative seek position")
)

type seekError string

func (e seekError) Error() string { return string(e) }
