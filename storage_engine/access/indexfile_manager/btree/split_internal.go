package btree

import "fmt"

// splitNonLeafNode splits a full non-leaf node and moves the midpoint key
// up: unlike a leaf split the separator leaves the node. The midpoint sits
// one past the balanced point so the left node stays larger by one slot and
// removing the moved-up key leaves no gap. Children m+1..capacity move with
// their keys — one more child than keys, so no child slot is orphaned.
// Both nodes are unpinned dirty.
func (idx *BTreeIndex) splitNonLeafNode(oldNode nonLeafNode, oldPageNo uint32, entry pageKeyPair) (*pageKeyPair, error) {
	newPageNo, newPg, err := idx.allocPage()
	if err != nil {
		idx.unpinPage(oldPageNo, false)
		return nil, fmt.Errorf("split non-leaf %d: allocate sibling: %w", oldPageNo, err)
	}
	newNode := nonLeafView(newPg)
	newNode.setLevel(oldNode.level())

	mid := idx.nodeOccupancy/2 - 1
	if idx.nodeOccupancy%2 == 0 && entry.key >= oldNode.key(mid) {
		mid++
	}
	mid++

	for i, j := mid+1, 0; i < idx.nodeOccupancy; i, j = i+1, j+1 {
		newNode.setKey(j, oldNode.key(i))
		oldNode.setKey(i, 0)
	}
	for i, j := mid+1, 0; i <= idx.nodeOccupancy; i, j = i+1, j+1 {
		newNode.setChild(j, oldNode.child(i))
		oldNode.setChild(i, 0)
	}

	prop := &pageKeyPair{key: oldNode.key(mid), pageNo: newPageNo}
	oldNode.setKey(mid, 0)

	if entry.key < newNode.key(0) {
		insertNodeNonLeaf(oldNode, entry)
	} else {
		insertNodeNonLeaf(newNode, entry)
	}

	idx.unpinPage(oldPageNo, true)
	idx.unpinPage(newPageNo, true)
	return prop, nil
}
