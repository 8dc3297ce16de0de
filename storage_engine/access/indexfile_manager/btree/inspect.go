// Index file inspection for debugging.
// Use InspectIndexFile(path) to print a human-readable dump of an index file.

package btree

import (
	"KestrelDB/types"
	"fmt"
	"io"
	"os"
)

// InspectIndexFile opens an index file and prints its structure to stdout.
func InspectIndexFile(indexPath string) error {
	return InspectIndexFileTo(os.Stdout, indexPath)
}

// InspectIndexFileTo writes a human-readable dump of the index file to w:
// the meta page, then each level's nodes top-down, then the leaf chain.
// It reads the file directly, outside any buffer pool, so it must not run
// against an index that is open for writing.
func InspectIndexFileTo(w io.Writer, indexPath string) error {
	f, err := os.Open(indexPath)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	readPage := func(pageNo uint32) (rawPage, error) {
		data := make([]byte, types.PageSize)
		if _, err := f.ReadAt(data, int64(pageNo-1)*types.PageSize); err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageNo, err)
		}
		return data, nil
	}

	metaData, err := readPage(1)
	if err != nil {
		return err
	}
	meta := metaNode{metaData}
	rootNo := meta.rootPageNo()

	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }

	p("Index file: %s\n", indexPath)
	p("  Page 1 (meta): relation=%q attrByteOffset=%d attrType=%d root=%d\n",
		meta.relationName(), meta.attrByteOffset(), meta.attrType(), rootNo)
	if rootNo == 0 {
		p("  (no root)\n")
		return nil
	}

	// The initial root is always page 2; when the root still is page 2 the
	// whole tree is that single leaf.
	const initialRoot = 2
	if rootNo == initialRoot {
		return dumpLeafChain(w, readPage, rootNo)
	}

	queue := []uint32{rootNo}
	level := 0
	var firstLeaf uint32

	for len(queue) > 0 {
		size := len(queue)
		p("  Level %d:\n", level)
		for i := 0; i < size; i++ {
			pageNo := queue[i]
			data, err := readPage(pageNo)
			if err != nil {
				p("    [page %d] read error: %v\n", pageNo, err)
				continue
			}
			node := nonLeafNode{data}
			count := node.keyCount()
			p("    [page %d] NON-LEAF level=%d keys=%d first=%d last=%d\n",
				pageNo, node.level(), count, node.key(0), node.key(count-1))

			if node.level() != 0 {
				// children are leaves; remember the leftmost for the chain walk
				if firstLeaf == 0 {
					firstLeaf = node.child(0)
				}
				continue
			}
			for c := 0; c <= count; c++ {
				queue = append(queue, node.child(c))
			}
		}
		queue = queue[size:]
		level++
	}

	return dumpLeafChain(w, readPage, firstLeaf)
}

type rawPage = []byte

func dumpLeafChain(w io.Writer, readPage func(uint32) (rawPage, error), firstLeaf uint32) error {
	fmt.Fprintf(w, "  Leaf chain:\n")
	pageNo := firstLeaf
	for pageNo != 0 {
		data, err := readPage(pageNo)
		if err != nil {
			return err
		}
		leaf := leafNode{data}
		n := leaf.entryCount()
		if n == 0 {
			fmt.Fprintf(w, "    [page %d] LEAF empty next=%d\n", pageNo, leaf.rightSibling())
		} else {
			first, last := leaf.key(0), leaf.key(n-1)
			fmt.Fprintf(w, "    [page %d] LEAF entries=%d keys=[%d..%d] next=%d\n",
				pageNo, n, first, last, leaf.rightSibling())
		}
		pageNo = leaf.rightSibling()
	}
	return nil
}
