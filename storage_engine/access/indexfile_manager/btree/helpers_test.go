package btree

import (
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"KestrelDB/types"
	"testing"
)

// newTestEnv builds a disk manager + buffer pool pair rooted in a temp dir.
func newTestEnv(t *testing.T, capacity int) (*bufferpool.BufferPool, *diskmanager.DiskManager, string) {
	t.Helper()

	dir := t.TempDir()
	dm, err := diskmanager.NewDiskManager()
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	bp := bufferpool.NewBufferPool(capacity, dm)
	return bp, dm, dir
}

// openEmptyIndex creates a fresh index with no backing relation.
func openEmptyIndex(t *testing.T, bp *bufferpool.BufferPool, dm *diskmanager.DiskManager, dir, relation string) *BTreeIndex {
	t.Helper()

	idx, err := OpenBTreeIndex(dir, relation, 0, Integer, bp, dm, nil)
	if err != nil {
		t.Fatalf("Failed to open index for %s: %v", relation, err)
	}
	return idx
}

// ridForKey fabricates a distinct, nonzero record id for a test key.
func ridForKey(i int) types.RecordID {
	return types.RecordID{
		PageNumber: uint32(i/100 + 1),
		SlotNumber: uint16(i % 100),
	}
}

// checkPinBalance asserts the pool holds exactly want pins.
func checkPinBalance(t *testing.T, bp *bufferpool.BufferPool, want int, context string) {
	t.Helper()
	if got := bp.PinnedPages(); got != want {
		t.Fatalf("pin balance after %s: %d pages pinned, want %d", context, got, want)
	}
}

// validateTree walks the whole tree checking the structural invariants:
// separators bound their subtrees, leaf keys are strictly ascending on
// (key, rid), array tails are zeroed, no child slot in a reachable node is
// zero, and the sibling chain visits every leaf once in key order.
// Returns the leaf count and all (key, rid) pairs in chain order.
func validateTree(t *testing.T, idx *BTreeIndex) (int, []ridKeyPair) {
	t.Helper()

	var leftmostLeaf uint32
	if idx.rootPageNo == idx.initialRootPageNo {
		leftmostLeaf = idx.rootPageNo
	} else {
		idx.checkSubtree(t, idx.rootPageNo, nil, nil)
		leftmostLeaf = idx.leftmostLeaf(t)
	}

	leafCount := 0
	var entries []ridKeyPair
	pageNo := leftmostLeaf
	for pageNo != 0 {
		pg, err := idx.fetchPage(pageNo)
		if err != nil {
			t.Fatalf("validate: fetch leaf %d: %v", pageNo, err)
		}
		leaf := leafView(pg)
		n := leaf.entryCount()
		for i := 0; i < n; i++ {
			entries = append(entries, ridKeyPair{key: leaf.key(i), rid: leaf.rid(i)})
		}
		// zeroed tail past the populated prefix
		for i := n; i < IntLeafCapacity; i++ {
			if leaf.key(i) != 0 || !leaf.rid(i).IsZero() {
				t.Fatalf("validate: leaf %d slot %d populated past prefix", pageNo, i)
			}
		}
		next := leaf.rightSibling()
		idx.unpinPage(pageNo, false)
		leafCount++
		pageNo = next
	}

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.key > cur.key {
			t.Fatalf("validate: leaf chain out of order: key %d before %d", prev.key, cur.key)
		}
		if prev.key == cur.key && !prev.rid.Less(cur.rid) {
			t.Fatalf("validate: duplicate key %d not ordered by rid", cur.key)
		}
	}

	return leafCount, entries
}

// checkSubtree verifies one non-leaf node and recurses. lo/hi bound every
// key reachable below: lo < key <= hi, with equality on lo tolerated where
// a copied-up leaf separator also remains in its right subtree.
func (idx *BTreeIndex) checkSubtree(t *testing.T, pageNo uint32, lo, hi *int32) {
	t.Helper()

	pg, err := idx.fetchPage(pageNo)
	if err != nil {
		t.Fatalf("validate: fetch non-leaf %d: %v", pageNo, err)
	}
	node := nonLeafView(pg)
	count := node.keyCount()
	if count < 1 {
		idx.unpinPage(pageNo, false)
		t.Fatalf("validate: non-leaf %d has no keys", pageNo)
	}

	for i := 0; i < count; i++ {
		if i > 0 && node.key(i-1) > node.key(i) {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: non-leaf %d keys out of order at %d", pageNo, i)
		}
		if lo != nil && node.key(i) < *lo {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: non-leaf %d key %d below subtree bound %d", pageNo, node.key(i), *lo)
		}
		if hi != nil && node.key(i) > *hi {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: non-leaf %d key %d above subtree bound %d", pageNo, node.key(i), *hi)
		}
	}
	for i := count + 1; i <= IntNonLeafCapacity; i++ {
		if node.child(i) != 0 {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: non-leaf %d child slot %d populated past prefix", pageNo, i)
		}
	}

	childrenAreLeaves := node.level() != 0
	type childBounds struct {
		pageNo uint32
		lo, hi *int32
	}
	var children []childBounds
	for i := 0; i <= count; i++ {
		child := node.child(i)
		if child == 0 {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: non-leaf %d child slot %d is zero", pageNo, i)
		}
		clo, chi := lo, hi
		if i > 0 {
			k := node.key(i - 1)
			clo = &k
		}
		if i < count {
			k := node.key(i)
			chi = &k
		}
		children = append(children, childBounds{pageNo: child, lo: clo, hi: chi})
	}
	idx.unpinPage(pageNo, false)

	for _, c := range children {
		if childrenAreLeaves {
			idx.checkLeafBounds(t, c.pageNo, c.lo, c.hi)
		} else {
			idx.checkSubtree(t, c.pageNo, c.lo, c.hi)
		}
	}
}

func (idx *BTreeIndex) checkLeafBounds(t *testing.T, pageNo uint32, lo, hi *int32) {
	t.Helper()

	pg, err := idx.fetchPage(pageNo)
	if err != nil {
		t.Fatalf("validate: fetch leaf %d: %v", pageNo, err)
	}
	leaf := leafView(pg)
	n := leaf.entryCount()
	for i := 0; i < n; i++ {
		k := leaf.key(i)
		if lo != nil && k < *lo {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: leaf %d key %d below bound %d", pageNo, k, *lo)
		}
		if hi != nil && k > *hi {
			idx.unpinPage(pageNo, false)
			t.Fatalf("validate: leaf %d key %d above bound %d", pageNo, k, *hi)
		}
	}
	idx.unpinPage(pageNo, false)
}

// leftmostLeaf descends child 0 pointers from the root to the first leaf.
func (idx *BTreeIndex) leftmostLeaf(t *testing.T) uint32 {
	t.Helper()

	pageNo := idx.rootPageNo
	for {
		pg, err := idx.fetchPage(pageNo)
		if err != nil {
			t.Fatalf("validate: fetch page %d: %v", pageNo, err)
		}
		node := nonLeafView(pg)
		child := node.child(0)
		atLeafLevel := node.level() != 0
		idx.unpinPage(pageNo, false)
		pageNo = child
		if atLeafLevel {
			return pageNo
		}
	}
}
