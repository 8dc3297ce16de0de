package btree

import "errors"

// Caller-visible failure taxonomy. Wrapping adds context; callers classify
// with errors.Is. Anything not listed here (buffer pool or disk failures)
// propagates wrapped and leaves the handle unsafe to keep using.
var (
	// ErrBadIndexInfo: an existing index file's meta page disagrees with the
	// relation name, attribute offset, or attribute type the caller opened with.
	ErrBadIndexInfo = errors.New("index meta does not match open parameters")

	// ErrBadOpcodes: a scan was started with operators other than GT/GTE for
	// the low bound and LT/LTE for the high bound.
	ErrBadOpcodes = errors.New("bad scan operators")

	// ErrBadScanRange: a scan was started with low > high.
	ErrBadScanRange = errors.New("bad scan range")

	// ErrNoSuchKeyFound: no entry satisfies the scan predicate. Raised by
	// StartScan only, never by ScanNext.
	ErrNoSuchKeyFound = errors.New("no key satisfies the scan predicate")

	// ErrScanNotInitialized: ScanNext or EndScan without an active scan.
	ErrScanNotInitialized = errors.New("no scan in progress")

	// ErrIndexScanCompleted: the scan has yielded its last matching entry.
	// The scan is torn down when this is returned.
	ErrIndexScanCompleted = errors.New("index scan completed")
)
