package btree

import (
	"KestrelDB/types"
	"fmt"
)

/*
Range scans run as a three-call protocol: StartScan descends to the first
qualifying entry and leaves that leaf pinned; ScanNext walks entries and the
sibling chain, keeping exactly one leaf pinned between calls; EndScan (or
the failing ScanNext that ends the scan, or a new StartScan) releases it.

   INACTIVE ──StartScan(ok)──▶ ACTIVE ──ScanNext(ok)──▶ ACTIVE
       ▲                          │
       └──EndScan / failing ScanNext / StartScan ◀──────┘
*/

func satisfiesLow(key, low int32, op Operator) bool {
	if op == GT {
		return key > low
	}
	return key >= low
}

// aboveHigh reports whether key lies past the scan's upper bound.
func aboveHigh(key, high int32, op Operator) bool {
	if op == LT {
		return key >= high
	}
	return key > high
}

// StartScan begins a range scan over (lowVal lowOp) .. (highVal highOp).
// A scan already in progress is ended first. On success exactly one leaf
// page stays pinned until the scan ends; on any failure nothing does.
func (idx *BTreeIndex) StartScan(lowVal int32, lowOp Operator, highVal int32, highOp Operator) error {
	if idx.scan.active {
		idx.unpinPage(idx.scan.currentPageNo, false)
		idx.scan = scanState{}
	}

	if (lowOp != GT && lowOp != GTE) || (highOp != LT && highOp != LTE) {
		return fmt.Errorf("%w: low op %v, high op %v", ErrBadOpcodes, lowOp, highOp)
	}
	if lowVal > highVal {
		return fmt.Errorf("%w: low %d > high %d", ErrBadScanRange, lowVal, highVal)
	}

	pageNo := idx.rootPageNo
	pg, err := idx.fetchPage(pageNo)
	if err != nil {
		return fmt.Errorf("scan: fetch root page %d: %w", pageNo, err)
	}

	// Descend to the leftmost leaf whose subtree can hold a key >= lowVal.
	// Each inner page is unpinned as soon as its child is chosen; a
	// separator equal to lowVal is skipped because the matching keys start
	// in its right child.
	if pageNo != idx.initialRootPageNo {
		for {
			node := nonLeafView(pg)
			atLeafLevel := node.level() == 1

			i := 0
			for i < idx.nodeOccupancy && node.key(i) <= lowVal && node.child(i+1) != 0 {
				i++
			}
			childNo := node.child(i)

			idx.unpinPage(pageNo, false)
			pageNo = childNo
			pg, err = idx.fetchPage(pageNo)
			if err != nil {
				return fmt.Errorf("scan: fetch page %d during descent: %w", pageNo, err)
			}
			if atLeafLevel {
				break
			}
		}
	}

	// Walk the leaf chain for the first entry inside both bounds. An empty
	// leaf is not the end of the index; its sibling may still hold keys.
	for {
		leaf := leafView(pg)
		n := leaf.entryCount()
		for i := 0; i < n; i++ {
			key := leaf.key(i)
			if aboveHigh(key, highVal, highOp) {
				idx.unpinPage(pageNo, false)
				return fmt.Errorf("%w: (%d %v, %d %v)", ErrNoSuchKeyFound, lowVal, lowOp, highVal, highOp)
			}
			if satisfiesLow(key, lowVal, lowOp) {
				idx.scan = scanState{
					active:        true,
					nextEntry:     i,
					currentPageNo: pageNo,
					currentPage:   pg,
					lowVal:        lowVal,
					highVal:       highVal,
					lowOp:         lowOp,
					highOp:        highOp,
				}
				return nil
			}
		}

		sibling := leaf.rightSibling()
		idx.unpinPage(pageNo, false)
		if sibling == 0 {
			return fmt.Errorf("%w: (%d %v, %d %v)", ErrNoSuchKeyFound, lowVal, lowOp, highVal, highOp)
		}
		pageNo = sibling
		pg, err = idx.fetchPage(pageNo)
		if err != nil {
			return fmt.Errorf("scan: fetch leaf page %d: %w", pageNo, err)
		}
	}
}

// ScanNext returns the record id of the next entry matching the scan.
// When the scan is exhausted — the chain ends or an entry violates the high
// bound — the pinned leaf is released, the state reset, and
// ErrIndexScanCompleted returned; a later EndScan then reports
// ErrScanNotInitialized.
func (idx *BTreeIndex) ScanNext() (types.RecordID, error) {
	if !idx.scan.active {
		return types.RecordID{}, ErrScanNotInitialized
	}

	leaf := leafView(idx.scan.currentPage)

	// Past the populated prefix: move to the right sibling.
	if idx.scan.nextEntry >= idx.leafOccupancy || leaf.rid(idx.scan.nextEntry).IsZero() {
		sibling := leaf.rightSibling()
		idx.unpinPage(idx.scan.currentPageNo, false)
		if sibling == 0 {
			idx.scan = scanState{}
			return types.RecordID{}, ErrIndexScanCompleted
		}

		pg, err := idx.fetchPage(sibling)
		if err != nil {
			idx.scan = scanState{}
			return types.RecordID{}, fmt.Errorf("scan: fetch leaf page %d: %w", sibling, err)
		}
		idx.scan.currentPageNo = sibling
		idx.scan.currentPage = pg
		idx.scan.nextEntry = 0
		leaf = leafView(pg)
	}

	key := leaf.key(idx.scan.nextEntry)
	if satisfiesLow(key, idx.scan.lowVal, idx.scan.lowOp) && !aboveHigh(key, idx.scan.highVal, idx.scan.highOp) {
		rid := leaf.rid(idx.scan.nextEntry)
		idx.scan.nextEntry++
		return rid, nil
	}

	// The chain is sorted, so the first violating key ends the scan.
	idx.unpinPage(idx.scan.currentPageNo, false)
	idx.scan = scanState{}
	return types.RecordID{}, ErrIndexScanCompleted
}

// EndScan terminates the scan and releases its pinned leaf.
func (idx *BTreeIndex) EndScan() error {
	if !idx.scan.active {
		return ErrScanNotInitialized
	}
	idx.unpinPage(idx.scan.currentPageNo, false)
	idx.scan = scanState{}
	return nil
}
