package btree

import "fmt"

// splitLeafNode splits a full leaf around a balanced midpoint, places the
// entry in the half its key belongs to, links the new leaf into the sibling
// chain, and returns the copied-up separator: the new leaf's first key,
// which stays present in the new leaf. Both leaves are unpinned dirty.
func (idx *BTreeIndex) splitLeafNode(oldNode leafNode, oldPageNo uint32, entry ridKeyPair) (*pageKeyPair, error) {
	newPageNo, newPg, err := idx.allocPage()
	if err != nil {
		idx.unpinPage(oldPageNo, false)
		return nil, fmt.Errorf("split leaf %d: allocate sibling: %w", oldPageNo, err)
	}
	newNode := leafView(newPg)

	// Midpoint balancing: with an even capacity the halves differ by one, so
	// lean the split toward the side the new key avoids.
	mid := idx.leafOccupancy/2 - 1
	if idx.leafOccupancy%2 == 0 && entry.key >= oldNode.key(mid) {
		mid++
	}

	for i, j := mid+1, 0; i < idx.leafOccupancy; i, j = i+1, j+1 {
		newNode.setKey(j, oldNode.key(i))
		newNode.setRID(j, oldNode.rid(i))
		oldNode.clearEntry(i)
	}

	if entry.key < oldNode.key(mid) {
		insertNodeLeaf(oldNode, entry)
	} else {
		insertNodeLeaf(newNode, entry)
	}

	newNode.setRightSibling(oldNode.rightSibling())
	oldNode.setRightSibling(newPageNo)

	prop := &pageKeyPair{key: newNode.key(0), pageNo: newPageNo}

	idx.unpinPage(oldPageNo, true)
	idx.unpinPage(newPageNo, true)
	return prop, nil
}
