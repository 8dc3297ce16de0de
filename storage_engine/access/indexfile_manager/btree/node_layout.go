package btree

import (
	"KestrelDB/storage_engine/page"
	"KestrelDB/types"
	"bytes"
	"encoding/binary"
)

/*
On-disk layout of the three page kinds, little-endian, overlaid on a 4KB
frame. The views below are thin windows into a pinned frame's Data slice —
no copying, no header bytes of their own. A view is valid only while the
frame's pin is held.

meta page (page 1 of the file):
  [0:20)    relation name, truncated, not necessarily NUL-terminated
  [20:24)   attribute byte offset (int32)
  [24:28)   attribute type (int32)
  [28:32)   root page number (uint32)

leaf page:
  [0:1364)     keys    [IntLeafCapacity]int32
  [1364:4092)  rids    [IntLeafCapacity]{pageNo uint32, slot uint16, pad uint16}
  [4092:4096)  right sibling page number (uint32, 0 = none)

non-leaf page:
  [0:4)        level (int32, 1 = children are leaves)
  [4:2048)     keys     [IntNonLeafCapacity]int32
  [2048:4096)  children [IntNonLeafCapacity+1]uint32 (0 = empty slot)

Entries occupy a prefix of the parallel arrays; the tail stays zeroed.
Occupancy is derived from the record id / child arrays (page number 0 is the
sentinel), never from the key array — 0 is a legal key.
*/

const (
	metaNameLen       = 20
	metaAttrOffsetOff = 20
	metaAttrTypeOff   = 24
	metaRootOff       = 28

	leafKeysOff = 0
	leafRIDsOff = IntLeafCapacity * keySize
	leafSibOff  = leafRIDsOff + IntLeafCapacity*types.RecordIDSize

	nonLeafLevelOff    = 0
	nonLeafKeysOff     = levelSize
	nonLeafChildrenOff = nonLeafKeysOff + IntNonLeafCapacity*keySize
)

// ---------------------------------------------------------------- meta page

type metaNode struct{ data []byte }

func metaView(pg *page.Page) metaNode { return metaNode{pg.Data} }

func (m metaNode) relationName() string {
	name := m.data[:metaNameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func (m metaNode) setRelationName(name string) {
	for i := 0; i < metaNameLen; i++ {
		m.data[i] = 0
	}
	copy(m.data[:metaNameLen], name) // silently truncated at 20 bytes
}

func (m metaNode) attrByteOffset() int32 {
	return int32(binary.LittleEndian.Uint32(m.data[metaAttrOffsetOff:]))
}

func (m metaNode) setAttrByteOffset(off int32) {
	binary.LittleEndian.PutUint32(m.data[metaAttrOffsetOff:], uint32(off))
}

func (m metaNode) attrType() Datatype {
	return Datatype(binary.LittleEndian.Uint32(m.data[metaAttrTypeOff:]))
}

func (m metaNode) setAttrType(t Datatype) {
	binary.LittleEndian.PutUint32(m.data[metaAttrTypeOff:], uint32(t))
}

func (m metaNode) rootPageNo() uint32 {
	return binary.LittleEndian.Uint32(m.data[metaRootOff:])
}

func (m metaNode) setRootPageNo(pageNo uint32) {
	binary.LittleEndian.PutUint32(m.data[metaRootOff:], pageNo)
}

// ---------------------------------------------------------------- leaf page

type leafNode struct{ data []byte }

func leafView(pg *page.Page) leafNode { return leafNode{pg.Data} }

func (n leafNode) key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(n.data[leafKeysOff+i*keySize:]))
}

func (n leafNode) setKey(i int, k int32) {
	binary.LittleEndian.PutUint32(n.data[leafKeysOff+i*keySize:], uint32(k))
}

func (n leafNode) rid(i int) types.RecordID {
	off := leafRIDsOff + i*types.RecordIDSize
	return types.RecordID{
		PageNumber: binary.LittleEndian.Uint32(n.data[off:]),
		SlotNumber: binary.LittleEndian.Uint16(n.data[off+4:]),
	}
}

func (n leafNode) setRID(i int, r types.RecordID) {
	off := leafRIDsOff + i*types.RecordIDSize
	binary.LittleEndian.PutUint32(n.data[off:], r.PageNumber)
	binary.LittleEndian.PutUint16(n.data[off+4:], r.SlotNumber)
	binary.LittleEndian.PutUint16(n.data[off+6:], 0)
}

func (n leafNode) clearEntry(i int) {
	n.setKey(i, 0)
	n.setRID(i, types.RecordID{})
}

func (n leafNode) rightSibling() uint32 {
	return binary.LittleEndian.Uint32(n.data[leafSibOff:])
}

func (n leafNode) setRightSibling(pageNo uint32) {
	binary.LittleEndian.PutUint32(n.data[leafSibOff:], pageNo)
}

// entryCount returns the length of the populated prefix.
func (n leafNode) entryCount() int {
	for i := 0; i < IntLeafCapacity; i++ {
		if n.rid(i).IsZero() {
			return i
		}
	}
	return IntLeafCapacity
}

// ------------------------------------------------------------ non-leaf page

type nonLeafNode struct{ data []byte }

func nonLeafView(pg *page.Page) nonLeafNode { return nonLeafNode{pg.Data} }

func (n nonLeafNode) level() int32 {
	return int32(binary.LittleEndian.Uint32(n.data[nonLeafLevelOff:]))
}

func (n nonLeafNode) setLevel(level int32) {
	binary.LittleEndian.PutUint32(n.data[nonLeafLevelOff:], uint32(level))
}

func (n nonLeafNode) key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(n.data[nonLeafKeysOff+i*keySize:]))
}

func (n nonLeafNode) setKey(i int, k int32) {
	binary.LittleEndian.PutUint32(n.data[nonLeafKeysOff+i*keySize:], uint32(k))
}

func (n nonLeafNode) child(i int) uint32 {
	return binary.LittleEndian.Uint32(n.data[nonLeafChildrenOff+i*pageNoSize:])
}

func (n nonLeafNode) setChild(i int, pageNo uint32) {
	binary.LittleEndian.PutUint32(n.data[nonLeafChildrenOff+i*pageNoSize:], pageNo)
}

// keyCount returns the number of populated keys, which equals the index of
// the last populated child slot.
func (n nonLeafNode) keyCount() int {
	i := IntNonLeafCapacity
	for i >= 0 && n.child(i) == 0 {
		i--
	}
	if i < 0 {
		return 0
	}
	return i
}
