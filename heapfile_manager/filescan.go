package heapfile

import (
	"KestrelDB/types"
	"fmt"
	"io"
)

// FileScan iterates every record of a heap file in physical order, yielding
// (record id, record bytes) pairs. End of relation is signalled by io.EOF
// from Next; the index build consumes that and turns it into a flush.
type FileScan struct {
	hf     *HeapFile
	pageNo uint32
	slot   uint16
	page   []byte
	header *PageHeader
}

// NewFileScan positions a scan before the first record of the heap file
func NewFileScan(hf *HeapFile) *FileScan {
	return &FileScan{hf: hf, pageNo: 1}
}

// Next returns the next record and its id, or io.EOF when the relation is exhausted
func (fs *FileScan) Next() (types.RecordID, []byte, error) {
	for {
		if fs.page == nil {
			if int64(fs.pageNo) > fs.hf.pager.TotalPages() {
				return types.RecordID{}, nil, io.EOF
			}
			pg, err := fs.hf.readPage(fs.pageNo)
			if err != nil {
				return types.RecordID{}, nil, fmt.Errorf("file scan: read page %d: %w", fs.pageNo, err)
			}
			fs.page = pg
			fs.header = readPageHeader(pg)
			fs.slot = 0
		}

		if fs.slot >= fs.header.SlotCount {
			fs.page = nil
			fs.pageNo++
			continue
		}

		slotIndex := fs.slot
		fs.slot++

		slot := readSlot(fs.page, slotIndex)
		if slot == nil || slot.Length == 0 {
			continue
		}

		data := getRowData(fs.page, slot)
		record := make([]byte, len(data))
		copy(record, data)

		return types.RecordID{PageNumber: fs.pageNo, SlotNumber: slotIndex}, record, nil
	}
}
