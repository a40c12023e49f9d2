package main

import (
	"fmt"
	"io"
	"os"
)

// fileBlockDevice adapts an *os.File to vfat.SizedBlockDevice.
type fileBlockDevice struct {
	f         *os.File
	blockSize int
	size      int64
}

func newFileBlockDevice(f *os.File, blockSize int) (*fileBlockDevice, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &fileBlockDevice{f: f, blockSize: blockSize, size: info.Size()}, nil
}

func (d *fileBlockDevice) BlockSize() int { return d.blockSize }
func (d *fileBlockDevice) Size() int64    { return d.size }

func (d *fileBlockDevice) ReadBlocks(dst []byte, startBlock int64) (int, error) {
	n, err := d.f.ReadAt(dst, startBlock*int64(d.blockSize))
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read blocks at %d: %w", startBlock, err)
	}
	return n, nil
}

func (d *fileBlockDevice) WriteBlocks(data []byte, startBlock int64) (int, error) {
	n, err := d.f.WriteAt(data, startBlock*int64(d.blockSize))
	if err != nil {
		return n, fmt.Errorf("write blocks at %d: %w", startBlock, err)
	}
	return n, nil
}
