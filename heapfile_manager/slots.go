package heapfile

import (
	"encoding/binary"
)

// readSlot reads a slot entry from the slot directory
// Slots are stored backward from the end: slot 0 is at PageSize-SlotSize, slot 1 at PageSize-2*SlotSize, etc.
func readSlot(page []byte, slotIndex uint16) *Slot {
	header := readPageHeader(page)
	if slotIndex >= header.SlotCount {
		return nil // Invalid slot index
	}
	slotOffset := PageSize - ((slotIndex + 1) * SlotSize)

	return &Slot{
		Offset: binary.LittleEndian.Uint16(page[slotOffset : slotOffset+2]),
		Length: binary.LittleEndian.Uint16(page[slotOffset+2 : slotOffset+4]),
	}
}

// addSlot adds a new slot entry and returns its index
func addSlot(page []byte, rowOffset uint16, rowLength uint16) uint16 {
	header := readPageHeader(page)
	slotIndex := header.SlotCount

	newSlotDirOffset := PageSize - ((header.SlotCount + 1) * SlotSize)

	binary.LittleEndian.PutUint16(page[newSlotDirOffset:newSlotDirOffset+2], rowOffset)
	binary.LittleEndian.PutUint16(page[newSlotDirOffset+2:newSlotDirOffset+4], rowLength)

	header.SlotCount++
	writePageHeader(page, header)

	return slotIndex
}

// getRowData retrieves row data using a slot entry
func getRowData(page []byte, slot *Slot) []byte {
	if slot.Offset == 0 || slot.Length == 0 {
		return nil
	}
	return page[slot.Offset : slot.Offset+slot.Length]
}

// calculateFreeSpace calculates available space in a page considering slot directory
func calculateFreeSpace(header *PageHeader) uint16 {
	slotDirSize := header.SlotCount * SlotSize
	usedSpace := header.FreePtr - PageHeaderSize
	availableSpace := PageSize - PageHeaderSize - slotDirSize - usedSpace
	return availableSpace
}
