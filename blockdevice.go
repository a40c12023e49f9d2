package fat

import (
	"errors"
	"fmt"
)

// BlockDevice is the block-addressable backing store the volume and
// directory layers read and write through. Implementations need not be
// thread-safe; callers are expected to serialize access externally.
type BlockDevice interface {
	// ReadBlocks reads len(dst)/blockSize blocks starting at startBlock
	// into dst. len(dst) must be a multiple of the device's block size.
	ReadBlocks(dst []byte, startBlock int64) (int, error)
	// WriteBlocks writes len(data)/blockSize blocks starting at
	// startBlock. len(data) must be a multiple of the device's block size.
	WriteBlocks(data []byte, startBlock int64) (int, error)
}

// SizedBlockDevice is a BlockDevice that knows its own geometry. Volume
// mounting requires this; a plain BlockDevice suffices once mounted.
type SizedBlockDevice interface {
	BlockDevice
	// BlockSize returns the size in bytes of one block.
	BlockSize() int
	// Size returns the total addressable size in bytes.
	Size() int64
}

// BytesBlocks is an in-memory BlockDevice backed by a flat byte slice.
// It is primarily useful for tests and small generated images.
type BytesBlocks struct {
	blockSize int
	data      []byte
}

// NewBytesBlocks allocates a BytesBlocks of the given size in blocks,
// each blockSize bytes.
func NewBytesBlocks(blockSize, numBlocks int) *BytesBlocks {
	if blockSize <= 0 || numBlocks <= 0 {
		panic("fat: invalid BytesBlocks geometry")
	}
	return &BytesBlocks{
		blockSize: blockSize,
		data:      make([]byte, blockSize*numBlocks),
	}
}

func (b *BytesBlocks) BlockSize() int { return b.blockSize }
func (b *BytesBlocks) Size() int64    { return int64(len(b.data)) }

func (b *BytesBlocks) bounds(n int, startBlock int64) (int64, int64, error) {
	if startBlock < 0 {
		return 0, 0, errors.New("fat: negative start block")
	}
	if n%b.blockSize != 0 {
		return 0, 0, errors.New("fat: length not a multiple of block size")
	}
	start := startBlock * int64(b.blockSize)
	end := start + int64(n)
	if end > int64(len(b.data)) {
		return 0, 0, fmt.Errorf("fat: access out of range [%d:%d) of %d", start, end, len(b.data))
	}
	return start, end, nil
}

func (b *BytesBlocks) ReadBlocks(dst []byte, startBlock int64) (int, error) {
	start, end, err := b.bounds(len(dst), startBlock)
	if err != nil {
		return 0, err
	}
	return copy(dst, b.data[start:end]), nil
}

func (b *BytesBlocks) WriteBlocks(data []byte, startBlock int64) (int, error) {
	start, end, err := b.bounds(len(data), startBlock)
	if err != nil {
		return 0, err
	}
	return copy(b.data[start:end], data), nil
}

// SectionDevice restricts another BlockDevice to a contiguous range of
// blocks, offset from block zero of the underlying device. It is used to
// expose a single MBR/GPT partition as a mountable BlockDevice.
type SectionDevice struct {
	under      BlockDevice
	blockSize  int
	startBlock int64
	numBlocks  int64
}

// NewSectionDevice builds a SectionDevice over under, starting at
// startBlock and spanning numBlocks blocks of blockSize bytes each.
func NewSectionDevice(under BlockDevice, blockSize int, startBlock, numBlocks int64) *SectionDevice {
	return &SectionDevice{under: under, blockSize: blockSize, startBlock: startBlock, numBlocks: numBlocks}
}

func (s *SectionDevice) BlockSize() int { return s.blockSize }
func (s *SectionDevice) Size() int64    { return s.numBlocks * int64(s.blockSize) }

func (s *SectionDevice) checkRange(n int, startBlock int64) error {
	nblocks := int64(n) / int64(s.blockSize)
	if startBlock < 0 || startBlock+nblocks > s.numBlocks {
		return fmt.Errorf("fat: section access out of range (block %d+%d of %d)", startBlock, nblocks, s.numBlocks)
	}
	return nil
}

func (s *SectionDevice) ReadBlocks(dst []byte, startBlock int64) (int, error) {
	if err := s.checkRange(len(dst), startBlock); err != nil {
		return 0, err
	}
	return s.under.ReadBlocks(dst, s.startBlock+startBlock)
}

func (s *SectionDevice) WriteBlocks(data []byte, startBlock int64) (int, error) {
	if err := s.checkRange(len(data), startBlock); err != nil {
		return 0, err
	}
	return s.under.WriteBlocks(data, s.startBlock+startBlock)
}
