package fat

import "io"

// FindFreeSlots scans stream from its beginning for the first run of n
// consecutive free (or end-of-directory) 32-byte slots, growing the
// stream by writing fresh zeroed slots onto its tail when no existing
// run is long enough. It returns the slot index (0-based, in units of
// SlotSize) where the run begins and leaves stream positioned at the
// start of that run, ready for write_entry to fill in.
//
// Growing only succeeds for a file-backed stream; the FAT12/16 root
// region cannot grow and FindFreeSlots returns ErrNoSpace instead.
func FindFreeSlots(stream *DirStream, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidInput
	}
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	run := 0
	runStart := 0
	slotIdx := 0
	sawEnd := false
	for {
		var buf [SlotSize]byte
		_, err := io.ReadFull(stream, buf[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return 0, err
		}
		kind := ClassifySlot(buf[:])
		if kind == SlotFree || kind == SlotEnd {
			if run == 0 {
				runStart = slotIdx
			}
			run++
			if kind == SlotEnd {
				sawEnd = true
			}
			if run >= n {
				if _, err := stream.Seek(int64(runStart)*SlotSize, io.SeekStart); err != nil {
					return 0, err
				}
				return runStart, nil
			}
		} else {
			run = 0
			sawEnd = false
		}
		slotIdx++
	}

	// Ran off the end of the stream without finding enough room. If we
	// last saw a genuine SlotEnd marker mid-run, every slot from there
	// to the true end of the directory region is logically free too
	// (they only need zeroing), so the gap left to fill is n-run. If the
	// current run has no end marker in it (including a trailing run of
	// 0xE5 free slots), that run is not reused and the whole run of n is
	// appended fresh.
	if run == 0 || !sawEnd {
		runStart = slotIdx
		run = 0
	}
	needed := n - run
	if needed > 0 {
		if _, ok := stream.FirstCluster(); !ok {
			return 0, ErrNoSpace
		}
		if _, err := stream.Seek(int64(slotIdx)*SlotSize, io.SeekStart); err != nil {
			return 0, err
		}
		zero := make([]byte, SlotSize*needed)
		if _, err := stream.Write(zero); err != nil {
			return 0, err
		}
	}
	if _, err := stream.Seek(int64(runStart)*SlotSize, io.SeekStart); err != nil {
		return 0, err
	}
	return runStart, nil
}
