// Package gpt reads a GUID Partition Table header and entry array far
// enough to locate a FAT-typed partition behind a protective MBR. Like
// package mbr, it is read-only.
package gpt

import (
	"encoding/binary"
	"errors"
)

// basicDataGUID is the "Microsoft Basic Data" partition type GUID, used by
// Windows and most tooling for FAT and NTFS partitions alike; callers
// still need to probe the BPB to tell FAT from NTFS.
var basicDataGUID = [16]byte{
	0xA2, 0xA0, 0xD0, 0xEB, 0xE5, 0xB9, 0x33, 0x44,
	0x87, 0xC0, 0x68, 0xB6, 0xB7, 0x26, 0x99, 0xC7,
}

const headerLen = 92

// Header is the GPT header, normally found at LBA 1.
type Header struct {
	data []byte
}

// ToHeader views start (at least 92 bytes) as a GPT Header.
func ToHeader(start []byte) (Header, error) {
	if len(start) < headerLen {
		return Header{}, errors.New("gpt: header too short")
	}
	return Header{data: start[:headerLen:headerLen]}, nil
}

// Signature returns the 8-byte magic, expected to read "EFI PART" when
// interpreted as ASCII.
func (h Header) Signature() uint64 {
	return binary.LittleEndian.Uint64(h.data[0:8])
}

// PartitionEntryLBA is the LBA where the partition entry array starts.
func (h Header) PartitionEntryLBA() int64 {
	return int64(binary.LittleEndian.Uint64(h.data[72:80]))
}

// NumberOfPartitionEntries is the length of the partition entry array.
func (h Header) NumberOfPartitionEntries() uint32 {
	return binary.LittleEndian.Uint32(h.data[80:84])
}

// SizeOfPartitionEntry is the stride, in bytes, of each partition entry;
// usually 128.
func (h Header) SizeOfPartitionEntry() uint32 {
	return binary.LittleEndian.Uint32(h.data[84:88])
}

const partitionEntryLen = 128

// PartitionEntry is a single slot in the GPT partition entry array.
type PartitionEntry struct {
	data []byte
}

// ToPartitionEntry views start (at least 128 bytes) as a PartitionEntry.
func ToPartitionEntry(start []byte) (PartitionEntry, error) {
	if len(start) < partitionEntryLen {
		return PartitionEntry{}, errors.New("gpt: partition entry too short")
	}
	return PartitionEntry{data: start[:partitionEntryLen:partitionEntryLen]}, nil
}

// IsUnused reports whether the partition type GUID is all-zero, meaning
// this slot holds no partition.
func (p PartitionEntry) IsUnused() bool {
	for _, b := range p.data[0:16] {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsBasicData reports whether the partition type GUID matches the
// "Microsoft Basic Data" type used for FAT and NTFS partitions.
func (p PartitionEntry) IsBasicData() bool {
	var guid [16]byte
	copy(guid[:], p.data[0:16])
	return guid == basicDataGUID
}

// FirstLBA returns the first sector of the partition.
func (p PartitionEntry) FirstLBA() int64 {
	return int64(binary.LittleEndian.Uint64(p.data[32:40]))
}

// LastLBA returns the last sector of the partition, inclusive.
func (p PartitionEntry) LastLBA() int64 {
	return int64(binary.LittleEndian.Uint64(p.data[40:48]))
}
