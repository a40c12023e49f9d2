package fat

import (
	"encoding/binary"
	"errors"
)

// ClusterAllocator is the directory subsystem's only window into
// cluster space: allocating a new cluster to extend a chain, freeing a
// whole chain on remove, and translating a cluster number to its first
// block on the backing device. The directory subsystem never reads or
// writes FAT table bytes directly.
type ClusterAllocator interface {
	// Alloc hands out a free cluster and, when prev is nonzero, links
	// it onto the end of prev's chain.
	Alloc(prev uint32) (uint32, error)
	// FreeChain walks the chain starting at first and marks every
	// cluster in it free.
	FreeChain(first uint32) error
	// Next returns the cluster that follows cluster in its chain.
	// isEOC is true when cluster is the chain's last entry, in which
	// case next is meaningless.
	Next(cluster uint32) (next uint32, isEOC bool, err error)
	// ClusterToBlock returns the first block of cluster's data region.
	ClusterToBlock(cluster uint32) int64
	// ClusterSize returns the size in bytes of one cluster.
	ClusterSize() int
}

// fatTable is a minimal, single-cached-copy FAT12/16/32 table backing
// ClusterAllocator. It keeps the whole table in memory and writes
// through to every FAT copy on every mutation, grounded on the same
// cluster-status accessors a ChaN-style driver uses (ld_clust/st_clust)
// but restructured as a self-contained type instead of FS methods.
type fatTable struct {
	bd            BlockDevice
	blockSize     int
	fatStartBlock int64
	fatSizeBytes  int
	numFATs       int
	bits          int // 12, 16, or 32
	clusterSize   int
	dataStartBlk  int64
	numClusters   uint32 // count of usable data clusters, numbered 2..numClusters+1

	table    []byte // one FAT copy, cached
	nextFree uint32
}

// NewFATTable loads the first FAT copy from bd and returns a
// ClusterAllocator backed by it. fatSizeBytes must be a multiple of
// blockSize.
func NewFATTable(bd BlockDevice, blockSize int, fatStartBlock int64, fatSizeBytes, numFATs, bits, clusterSize int, dataStartBlock int64, numClusters uint32) (ClusterAllocator, error) {
	if bits != 12 && bits != 16 && bits != 32 {
		return nil, errors.New("fat: unsupported FAT bit width")
	}
	buf := make([]byte, fatSizeBytes)
	if _, err := bd.ReadBlocks(buf, fatStartBlock); err != nil {
		return nil, err
	}
	return &fatTable{
		bd: bd, blockSize: blockSize,
		fatStartBlock: fatStartBlock, fatSizeBytes: fatSizeBytes,
		numFATs: numFATs, bits: bits, clusterSize: clusterSize,
		dataStartBlk: dataStartBlock, numClusters: numClusters,
		table: buf, nextFree: 2,
	}, nil
}

func (t *fatTable) eocValue() uint32 {
	switch t.bits {
	case 12:
		return 0x0FFF
	case 16:
		return 0xFFFF
	default:
		return 0x0FFFFFFF
	}
}

func (t *fatTable) isEOCValue(v uint32) bool {
	switch t.bits {
	case 12:
		return v >= 0x0FF8
	case 16:
		return v >= 0xFFF8
	default:
		return v >= 0x0FFFFFF8
	}
}

func (t *fatTable) readEntry(cluster uint32) uint32 {
	switch t.bits {
	case 12:
		off := cluster + cluster/2
		v := binary.LittleEndian.Uint16(t.table[off : off+2])
		if cluster&1 == 1 {
			return uint32(v >> 4)
		}
		return uint32(v & 0x0FFF)
	case 16:
		return uint32(binary.LittleEndian.Uint16(t.table[cluster*2:]))
	default:
		return binary.LittleEndian.Uint32(t.table[cluster*4:]) & 0x0FFFFFFF
	}
}

func (t *fatTable) writeEntry(cluster, value uint32) {
	switch t.bits {
	case 12:
		off := cluster + cluster/2
		old := binary.LittleEndian.Uint16(t.table[off : off+2])
		var v uint16
		if cluster&1 == 1 {
			v = (old & 0x000F) | uint16(value&0x0FFF)<<4
		} else {
			v = (old & 0xF000) | uint16(value&0x0FFF)
		}
		binary.LittleEndian.PutUint16(t.table[off:off+2], v)
	case 16:
		binary.LittleEndian.PutUint16(t.table[cluster*2:], uint16(value))
	default:
		old := binary.LittleEndian.Uint32(t.table[cluster*4:])
		binary.LittleEndian.PutUint32(t.table[cluster*4:], (old&0xF0000000)|(value&0x0FFFFFFF))
	}
}

func (t *fatTable) flush() error {
	for i := 0; i < t.numFATs; i++ {
		start := t.fatStartBlock + int64(i)*int64(t.fatSizeBytes/t.blockSize)
		if _, err := t.bd.WriteBlocks(t.table, start); err != nil {
			return err
		}
	}
	return nil
}

func (t *fatTable) Alloc(prev uint32) (uint32, error) {
	for i := uint32(0); i < t.numClusters; i++ {
		c := 2 + (t.nextFree-2+i)%t.numClusters
		if t.readEntry(c) == 0 {
			if err := t.clearCluster(c); err != nil {
				return 0, err
			}
			t.writeEntry(c, t.eocValue())
			if prev != 0 {
				t.writeEntry(prev, c)
			}
			t.nextFree = c + 1
			if err := t.flush(); err != nil {
				return 0, err
			}
			return c, nil
		}
	}
	return 0, errors.New("fat: no free clusters")
}

// clearCluster zero-fills a cluster's whole data region before it is
// handed out. Without this, a cluster that last held directory entries
// would still look like a populated directory to anything that reads
// it before the caller gets around to overwriting it, and a cluster
// only partially overwritten (e.g. "." and ".." in a freshly allocated
// directory cluster) would leave the previous occupant's bytes as
// live-looking entries past the new ones.
func (t *fatTable) clearCluster(c uint32) error {
	zero := make([]byte, t.clusterSize)
	_, err := t.bd.WriteBlocks(zero, t.ClusterToBlock(c))
	return err
}

func (t *fatTable) FreeChain(first uint32) error {
	c := first
	for c >= 2 && !t.isEOCValue(c) {
		next := t.readEntry(c)
		t.writeEntry(c, 0)
		c = next
	}
	return t.flush()
}

func (t *fatTable) Next(cluster uint32) (next uint32, isEOC bool, err error) {
	v := t.readEntry(cluster)
	if t.isEOCValue(v) {
		return 0, true, nil
	}
	if v == 0 {
		return 0, false, errors.New("fat: chain references a free cluster")
	}
	return v, false, nil
}

func (t *fatTable) ClusterToBlock(cluster uint32) int64 {
	blocksPerCluster := int64(t.clusterSize / t.blockSize)
	return t.dataStartBlk + int64(cluster-2)*blocksPerCluster
}

func (t *fatTable) ClusterSize() int { return t.clusterSize }
