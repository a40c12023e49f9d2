// Package mbr reads a Master Boot Record partition table far enough to
// locate a FAT-typed partition. It is read-only: this module never writes
// partition tables, only discovers where a FAT volume starts.
package mbr

import (
	"encoding/binary"
	"errors"
)

const (
	bootstrapLen     = 440
	pteOffset        = bootstrapLen + 4 + 2 // unique disk id + reserved
	pteLen           = 16
	numEntries       = 4
	bootSignatureOff = 510
	// BootSignature is the magic value at the end of a valid MBR sector.
	BootSignature = 0xAA55
)

// BootSector wraps the first 512 bytes of a disk image holding an MBR.
type BootSector struct {
	data []byte
}

// ToBootSector views start (which must be at least 512 bytes, sector 0 of
// the disk) as an MBR BootSector.
func ToBootSector(start []byte) (BootSector, error) {
	if len(start) < 512 {
		return BootSector{}, errors.New("mbr: boot sector too short")
	}
	return BootSector{data: start[:512:512]}, nil
}

// Valid reports whether the trailing 0xAA55 signature is present.
func (mbr BootSector) Valid() bool {
	return binary.LittleEndian.Uint16(mbr.data[bootSignatureOff:]) == BootSignature
}

// PartitionTable returns the idx'th (0..3) partition table entry.
func (mbr BootSector) PartitionTable(idx int) PartitionTableEntry {
	if idx < 0 || idx >= numEntries {
		panic("mbr: partition table index out of range")
	}
	off := pteOffset + idx*pteLen
	var pte PartitionTableEntry
	copy(pte.data[:], mbr.data[off:off+pteLen])
	return pte
}

// FindFATPartition scans the four primary partition entries and returns
// the index and entry of the first one whose type byte names a FAT
// variant. It returns found=false when none match, and also stops with
// found=false at a GPT protective entry (type 0xEE) that comes before any
// FAT entry.
func (mbr BootSector) FindFATPartition() (idx int, pte PartitionTableEntry, found bool) {
	for i := 0; i < numEntries; i++ {
		e := mbr.PartitionTable(i)
		switch e.PartitionType() {
		case PartitionTypeFAT12, PartitionTypeFAT16, PartitionTypeFAT16B,
			PartitionTypeFAT32CHS, PartitionTypeFAT32LBA, PartitionTypeFAT16LBA:
			return i, e, true
		case PartitionTypeGPTProtective:
			return i, e, false
		}
	}
	return 0, PartitionTableEntry{}, false
}

// PartitionTableEntry describes one of the four primary partitions.
type PartitionTableEntry struct {
	data [pteLen]byte
}

// PartitionType refers to the type byte of a partition table entry.
func (pte PartitionTableEntry) PartitionType() PartitionType {
	return PartitionType(pte.data[4])
}

// StartLBA returns the first sector of the partition.
func (pte PartitionTableEntry) StartLBA() uint32 {
	return binary.LittleEndian.Uint32(pte.data[8:12])
}

// NumberOfLBA returns the partition's length in sectors.
func (pte PartitionTableEntry) NumberOfLBA() uint32 {
	return binary.LittleEndian.Uint32(pte.data[12:16])
}

// IsBootable reports whether the 0x80 active-partition flag is set.
func (pte PartitionTableEntry) IsBootable() bool {
	return pte.data[0]&0x80 != 0
}

// PartitionType identifies the filesystem format a partition claims.
type PartitionType byte

const (
	PartitionTypeUnused         PartitionType = 0x00
	PartitionTypeFAT12          PartitionType = 0x01
	PartitionTypeFAT16          PartitionType = 0x04
	PartitionTypeExtended       PartitionType = 0x05
	PartitionTypeFAT16B         PartitionType = 0x06
	PartitionTypeFAT32CHS       PartitionType = 0x0B
	PartitionTypeFAT32LBA       PartitionType = 0x0C
	PartitionTypeFAT16LBA       PartitionType = 0x0E
	PartitionTypeGPTProtective  PartitionType = 0xEE
	PartitionTypeLinux          PartitionType = 0x83
)
