package fat

import (
	"encoding/binary"
	"errors"
)

const bpbSignatureOffset = 510

// BootSector views the first 512-byte sector of a FAT volume's BIOS
// Parameter Block. It exposes only the fields needed to compute
// cluster geometry and FAT width, the subset a minimal mount path needs.
type BootSector struct {
	b []byte
}

// ToBootSector views b (at least 512 bytes) as a BootSector.
func ToBootSector(b []byte) (BootSector, error) {
	if len(b) < 512 {
		return BootSector{}, errors.New("fat: boot sector too short")
	}
	return BootSector{b: b[:512:512]}, nil
}

func (bs BootSector) BytesPerSector() int      { return int(binary.LittleEndian.Uint16(bs.b[11:13])) }
func (bs BootSector) SectorsPerCluster() int   { return int(bs.b[13]) }
func (bs BootSector) ReservedSectorCount() int { return int(binary.LittleEndian.Uint16(bs.b[14:16])) }
func (bs BootSector) NumFATs() int             { return int(bs.b[16]) }
func (bs BootSector) RootEntryCount() int      { return int(binary.LittleEndian.Uint16(bs.b[17:19])) }

func (bs BootSector) totalSectors16() int { return int(binary.LittleEndian.Uint16(bs.b[19:21])) }
func (bs BootSector) totalSectors32() int { return int(binary.LittleEndian.Uint32(bs.b[32:36])) }

// TotalSectors returns whichever of the 16/32-bit total-sector fields
// is populated.
func (bs BootSector) TotalSectors() int {
	if n := bs.totalSectors16(); n != 0 {
		return n
	}
	return bs.totalSectors32()
}

func (bs BootSector) fatSize16() int { return int(binary.LittleEndian.Uint16(bs.b[22:24])) }
func (bs BootSector) fatSize32() int { return int(binary.LittleEndian.Uint32(bs.b[36:40])) }

// FATSize returns the size in sectors of one FAT copy, from whichever
// of the FAT12/16 or FAT32 field is populated.
func (bs BootSector) FATSize() int {
	if n := bs.fatSize16(); n != 0 {
		return n
	}
	return bs.fatSize32()
}

// RootCluster returns the FAT32 root directory's first cluster. Only
// meaningful once Geometry has classified the volume as FAT32.
func (bs BootSector) RootCluster() uint32 {
	return binary.LittleEndian.Uint32(bs.b[44:48])
}

// Valid reports whether the trailing 0xAA55 boot signature is present.
func (bs BootSector) Valid() bool {
	return binary.LittleEndian.Uint16(bs.b[bpbSignatureOffset:]) == 0xAA55
}

// Geometry is the derived layout of a mounted FAT volume: everything
// the cluster allocator and directory streams need, expressed in
// sectors/blocks rather than raw BPB fields.
type Geometry struct {
	BlockSize         int
	Bits              int // 12, 16, or 32
	SectorsPerCluster int
	ClusterSize       int
	NumFATs           int
	FATStartBlock     int64
	FATSizeBytes      int
	RootDirStartBlock int64 // FAT12/16 only
	RootDirSizeBytes  int64 // FAT12/16 only
	RootCluster       uint32 // FAT32 only
	DataStartBlock    int64
	NumClusters       uint32
}

// ComputeGeometry derives a Geometry from a parsed BootSector, classifying
// the FAT width by the standard cluster-count rule: fewer than 4085
// data clusters is FAT12, fewer than 65525 is FAT16, otherwise FAT32.
func ComputeGeometry(bs BootSector) (Geometry, error) {
	blockSize := bs.BytesPerSector()
	if blockSize <= 0 {
		return Geometry{}, errors.New("fat: invalid bytes per sector")
	}
	spc := bs.SectorsPerCluster()
	if spc <= 0 {
		return Geometry{}, errors.New("fat: invalid sectors per cluster")
	}

	reserved := bs.ReservedSectorCount()
	numFATs := bs.NumFATs()
	fatSize := bs.FATSize()
	rootEntryCount := bs.RootEntryCount()
	rootDirSectors := (rootEntryCount*SlotSize + blockSize - 1) / blockSize

	fatStart := int64(reserved)
	rootDirStart := fatStart + int64(numFATs)*int64(fatSize)
	dataStart := rootDirStart + int64(rootDirSectors)

	totalSectors := bs.TotalSectors()
	dataSectors := totalSectors - int(dataStart)
	if dataSectors < 0 {
		return Geometry{}, errors.New("fat: volume too small for its own metadata")
	}
	numClusters := uint32(dataSectors / spc)

	var bits int
	switch {
	case numClusters < 4085:
		bits = 12
	case numClusters < 65525:
		bits = 16
	default:
		bits = 32
	}

	g := Geometry{
		BlockSize: blockSize, Bits: bits,
		SectorsPerCluster: spc, ClusterSize: spc * blockSize,
		NumFATs:           numFATs,
		FATStartBlock:     fatStart, FATSizeBytes: fatSize * blockSize,
		DataStartBlock: dataStart,
		NumClusters:    numClusters,
	}
	if bits == 32 {
		g.RootCluster = bs.RootCluster()
	} else {
		g.RootDirStartBlock = rootDirStart
		g.RootDirSizeBytes = int64(rootDirSectors) * int64(blockSize)
	}
	return g, nil
}
