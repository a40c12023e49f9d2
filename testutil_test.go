package fat

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
)

// buildFAT12Image builds a small in-memory FAT12 image: one sector
// reserved, two one-sector FATs, a 16-entry (one sector) root
// directory, and 50 one-sector data clusters. Small enough to keep
// test output readable, big enough to exercise multi-cluster chains
// and directory growth.
func buildFAT12Image() *BytesBlocks {
	const (
		blockSize      = 512
		reservedSecs   = 1
		numFATs        = 2
		fatSizeSecs    = 1
		rootEntryCount = 16
		rootDirSecs    = 1
		numClusters    = 50
		totalSecs      = reservedSecs + numFATs*fatSizeSecs + rootDirSecs + numClusters
	)

	bd := NewBytesBlocks(blockSize, totalSecs)
	boot := make([]byte, blockSize)
	binary.LittleEndian.PutUint16(boot[11:13], blockSize)
	boot[13] = 1 // sectors per cluster
	binary.LittleEndian.PutUint16(boot[14:16], reservedSecs)
	boot[16] = numFATs
	binary.LittleEndian.PutUint16(boot[17:19], rootEntryCount)
	binary.LittleEndian.PutUint16(boot[19:21], totalSecs)
	boot[21] = 0xF8
	binary.LittleEndian.PutUint16(boot[22:24], fatSizeSecs)

	// A fresh random volume ID per image means two fixtures built with
	// identical geometry are never byte-identical, which matters for
	// tests that compare or hash whole images.
	id := uuid.New()
	copy(boot[39:43], id[:4])

	binary.LittleEndian.PutUint16(boot[510:512], 0xAA55)
	if _, err := bd.WriteBlocks(boot, 0); err != nil {
		panic(err)
	}
	return bd
}

// newFAT12Fixture is buildFAT12Image wired to a *testing.T for callers
// that have one.
func newFAT12Fixture(t *testing.T) *BytesBlocks {
	t.Helper()
	return buildFAT12Image()
}

// newFAT32Fixture builds a minimal in-memory FAT32 image: just past the
// 65525-cluster threshold ComputeGeometry uses to classify FAT32, with
// an artificially small 64-byte "sector" so the whole image stays a few
// megabytes instead of the tens a real 512-byte-sector FAT32 volume
// would need at this cluster count. The root directory is its own
// one-cluster chain (cluster 2, marked end-of-chain in both FAT
// copies), same as a freshly formatted volume.
func newFAT32Fixture(t *testing.T) *BytesBlocks {
	t.Helper()
	const (
		blockSize    = 64
		reservedSecs = 32
		numFATs      = 2
		spc          = 1
		numClusters  = 65525
		fatEntries   = numClusters + 2
		fatSizeSecs  = (fatEntries*4 + blockSize - 1) / blockSize
		dataSecs     = numClusters * spc
		totalSecs    = reservedSecs + numFATs*fatSizeSecs + dataSecs
		rootCluster  = 2
	)

	bd := NewBytesBlocks(blockSize, totalSecs)
	// The boot sector is 512 bytes regardless of the 64-byte block size:
	// it spans the first 8 reserved blocks.
	boot := make([]byte, 512)
	binary.LittleEndian.PutUint16(boot[11:13], blockSize)
	boot[13] = spc
	binary.LittleEndian.PutUint16(boot[14:16], reservedSecs)
	boot[16] = numFATs
	binary.LittleEndian.PutUint16(boot[17:19], 0) // RootEntryCount == 0 signals FAT32 layout
	binary.LittleEndian.PutUint16(boot[19:21], 0)
	boot[21] = 0xF8
	binary.LittleEndian.PutUint16(boot[22:24], 0)
	binary.LittleEndian.PutUint32(boot[32:36], totalSecs)
	binary.LittleEndian.PutUint32(boot[36:40], fatSizeSecs)
	binary.LittleEndian.PutUint32(boot[44:48], rootCluster)
	id := uuid.New()
	copy(boot[100:104], id[:4]) // parked past every field ComputeGeometry reads
	binary.LittleEndian.PutUint16(boot[510:512], 0xAA55)
	if _, err := bd.WriteBlocks(boot, 0); err != nil {
		t.Fatal(err)
	}

	fat := make([]byte, fatSizeSecs*blockSize)
	binary.LittleEndian.PutUint32(fat[0:4], 0x0FFFFFF8)
	binary.LittleEndian.PutUint32(fat[4:8], 0x0FFFFFFF)
	binary.LittleEndian.PutUint32(fat[rootCluster*4:rootCluster*4+4], 0x0FFFFFFF)
	for i := 0; i < numFATs; i++ {
		if _, err := bd.WriteBlocks(fat, reservedSecs+int64(i)*fatSizeSecs); err != nil {
			t.Fatal(err)
		}
	}
	return bd
}

func mustMount(t *testing.T, bd *BytesBlocks) *FS {
	t.Helper()
	fsys, err := Mount(bd, MountConfig{Mode: ModeReadWrite})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return fsys
}
