// Structure of the index
/*
BTreeIndex (one file per indexed attribute)
 ├── meta page (page 1): relation name, attribute offset/type, root page no
 └── root
      ├── non-leaf pages (level 1 means children are leaves)
      │      └── ...
      └── leaf pages (sorted keys + record ids, linked via right sibling)

- keys: int32, ascending; equal keys ordered by record id
- non-leaf pages: one more child slot than key slots
- leaf pages chained left to right for range scans
- page number 0 is "no page" everywhere (sibling ends, empty child slots)
*/
package btree

import (
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"KestrelDB/storage_engine/page"
	"KestrelDB/types"
)

// Datatype of the indexed attribute. Only Integer is supported; the other
// tags exist so a meta page can name what it was built over.
type Datatype int32

const (
	Integer Datatype = iota
	Double
	String
)

// Operator bounds a range scan. Low bounds take GT/GTE, high bounds LT/LTE.
type Operator int

const (
	LT Operator = iota
	LTE
	GTE
	GT
)

func (op Operator) String() string {
	switch op {
	case LT:
		return "LT"
	case LTE:
		return "LTE"
	case GTE:
		return "GTE"
	case GT:
		return "GT"
	}
	return "?"
}

const (
	keySize    = 4 // int32 key
	pageNoSize = 4 // uint32 page number
	levelSize  = 4
)

const (
	// IntLeafCapacity is the number of (key, record id) slots in a leaf:
	// everything left of the sibling pointer.
	IntLeafCapacity = (types.PageSize - pageNoSize) / (keySize + types.RecordIDSize)

	// IntNonLeafCapacity is the number of key slots in a non-leaf page; it
	// holds one more child slot than keys.
	IntNonLeafCapacity = (types.PageSize - levelSize - pageNoSize) / (keySize + pageNoSize)
)

// ridKeyPair is the unit carried down the descent into a leaf.
type ridKeyPair struct {
	key int32
	rid types.RecordID
}

// pageKeyPair is a split's separator carried back up the descent: the key
// and the page number of the newly created right sibling.
type pageKeyPair struct {
	key    int32
	pageNo uint32
}

// scanState is the cross-call state of the one scan a handle may run. While
// active is set, exactly currentPage is pinned on behalf of the scan.
type scanState struct {
	active        bool
	nextEntry     int
	currentPageNo uint32
	currentPage   *page.Page
	lowVal        int32
	highVal       int32
	lowOp         Operator
	highOp        Operator
}

// BTreeIndex is an open B+ tree index over one integer attribute of a
// relation. A handle is single-threaded: callers serialise externally, and
// at most one scan runs at a time.
type BTreeIndex struct {
	filePath    string
	fileID      uint32
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager

	headerPageNo      uint32
	rootPageNo        uint32
	initialRootPageNo uint32 // the leaf root the file was created with; root == initial means the root is a leaf

	attrByteOffset int
	attributeType  Datatype
	leafOccupancy  int
	nodeOccupancy  int

	scan scanState
}

// global maps a local page number of this index file to the buffer pool's
// global page id.
func (idx *BTreeIndex) global(pageNo uint32) int64 {
	return int64(idx.fileID)<<32 | int64(pageNo)
}

func (idx *BTreeIndex) fetchPage(pageNo uint32) (*page.Page, error) {
	return idx.bufferPool.FetchPage(idx.global(pageNo))
}

func (idx *BTreeIndex) unpinPage(pageNo uint32, dirty bool) {
	_ = idx.bufferPool.UnpinPage(idx.global(pageNo), dirty)
}

// allocPage allocates and pins a fresh zeroed page of this index file,
// returning its local page number.
func (idx *BTreeIndex) allocPage() (uint32, *page.Page, error) {
	pg, err := idx.bufferPool.NewPage(idx.fileID, types.PageTypeBTreeNode)
	if err != nil {
		return 0, nil, err
	}
	return uint32(pg.ID & 0xFFFFFFFF), pg, nil
}
