package btree

import "fmt"

// updateRoot installs a fresh non-leaf root over the old root and the split
// sibling that escaped it, then rewrites the meta page. The new root's
// level is 1 exactly when the old root was the initial leaf root.
func (idx *BTreeIndex) updateRoot(oldRootNo uint32, prop *pageKeyPair) error {
	newRootNo, rootPg, err := idx.allocPage()
	if err != nil {
		return fmt.Errorf("root split: allocate new root: %w", err)
	}

	root := nonLeafView(rootPg)
	if oldRootNo == idx.initialRootPageNo {
		root.setLevel(1)
	} else {
		root.setLevel(0)
	}
	root.setKey(0, prop.key)
	root.setChild(0, oldRootNo)
	root.setChild(1, prop.pageNo)
	idx.unpinPage(newRootNo, true)

	metaPg, err := idx.fetchPage(idx.headerPageNo)
	if err != nil {
		return fmt.Errorf("root split: fetch meta page: %w", err)
	}
	idx.rootPageNo = newRootNo
	metaView(metaPg).setRootPageNo(newRootNo)
	idx.unpinPage(idx.headerPageNo, true)

	return nil
}
