package btree

import (
	"KestrelDB/storage_engine/page"
	"KestrelDB/types"
	"fmt"
)

// InsertEntry adds (key, rid) to the index. Duplicates are allowed; entries
// sharing a key are ordered by record id. Splits propagate up the descent
// and, if one escapes the root, a new root is installed and the meta page
// rewritten.
func (idx *BTreeIndex) InsertEntry(key int32, rid types.RecordID) error {
	entry := ridKeyPair{key: key, rid: rid}

	rootNo := idx.rootPageNo
	pg, err := idx.fetchPage(rootNo)
	if err != nil {
		return fmt.Errorf("insert: fetch root page %d: %w", rootNo, err)
	}

	prop, err := idx.insertHelper(entry, pg, rootNo, rootNo == idx.initialRootPageNo)
	if err != nil {
		return err
	}
	if prop != nil {
		return idx.updateRoot(rootNo, prop)
	}
	return nil
}

// insertHelper descends from a pinned page to the target leaf, inserting
// and splitting as needed. It unpins the page on every path out: clean when
// nothing at this level changed, dirty when an entry landed here. A non-nil
// return is a split separator the caller must place one level up.
func (idx *BTreeIndex) insertHelper(entry ridKeyPair, pg *page.Page, pageNo uint32, isLeaf bool) (*pageKeyPair, error) {
	if isLeaf {
		leaf := leafView(pg)
		if leaf.rid(idx.leafOccupancy - 1).IsZero() {
			insertNodeLeaf(leaf, entry)
			idx.unpinPage(pageNo, true)
			return nil, nil
		}
		return idx.splitLeafNode(leaf, pageNo, entry)
	}

	node := nonLeafView(pg)

	// Child i covers keys <= key(i); an equal separator sends the entry left.
	i := node.keyCount()
	for i > 0 && node.key(i-1) >= entry.key {
		i--
	}
	childNo := node.child(i)

	childPg, err := idx.fetchPage(childNo)
	if err != nil {
		idx.unpinPage(pageNo, false)
		return nil, fmt.Errorf("insert: fetch child page %d: %w", childNo, err)
	}

	prop, err := idx.insertHelper(entry, childPg, childNo, node.level() != 0)
	if err != nil {
		idx.unpinPage(pageNo, false)
		return nil, err
	}
	if prop == nil {
		idx.unpinPage(pageNo, false)
		return nil, nil
	}

	if node.child(idx.nodeOccupancy) == 0 {
		insertNodeNonLeaf(node, *prop)
		idx.unpinPage(pageNo, true)
		return nil, nil
	}
	return idx.splitNonLeafNode(node, pageNo, *prop)
}

// insertNodeLeaf shifts the populated tail one slot right and writes the
// entry at its sorted position; equal keys order by record id. The caller
// guarantees a free slot.
func insertNodeLeaf(node leafNode, entry ridKeyPair) {
	i := node.entryCount() - 1
	for ; i >= 0; i-- {
		k := node.key(i)
		if k < entry.key || (k == entry.key && node.rid(i).Less(entry.rid)) {
			break
		}
		node.setKey(i+1, k)
		node.setRID(i+1, node.rid(i))
	}
	node.setKey(i+1, entry.key)
	node.setRID(i+1, entry.rid)
}

// insertNodeNonLeaf shifts keys and the children right of them one slot and
// writes the separator at its sorted position, its page as the right child.
// The caller guarantees a free slot.
func insertNodeNonLeaf(node nonLeafNode, entry pageKeyPair) {
	i := node.keyCount()
	for ; i > 0 && node.key(i-1) > entry.key; i-- {
		node.setKey(i, node.key(i-1))
		node.setChild(i+1, node.child(i))
	}
	node.setKey(i, entry.key)
	node.setChild(i+1, entry.pageNo)
}
