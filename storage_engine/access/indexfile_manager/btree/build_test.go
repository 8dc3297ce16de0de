package btree

import (
	heapfile "KestrelDB/heapfile_manager"
	"KestrelDB/types"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"
)

// testRecord lays out a fixed-width relation record: a 4-byte id, the
// 4-byte indexed attribute at offset 4, then padding.
func testRecord(id int32, key int32) []byte {
	record := make([]byte, 24)
	binary.LittleEndian.PutUint32(record[0:], uint32(id))
	binary.LittleEndian.PutUint32(record[4:], uint32(key))
	return record
}

func TestBuildFromRelation(t *testing.T) {
	bp, dm, dir := newTestEnv(t, 256)

	hfm, err := heapfile.NewHeapFileManager(dir)
	if err != nil {
		t.Fatalf("heap file manager: %v", err)
	}
	defer hfm.CloseAll()

	hf, err := hfm.CreateHeapfile("employees", 1)
	if err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	const n = 2000
	keys := rng.Perm(n)

	wantRID := make(map[int32]types.RecordID)
	for i, k := range keys {
		rid, err := hf.InsertRow(testRecord(int32(i), int32(k)))
		if err != nil {
			t.Fatalf("insert row %d: %v", i, err)
		}
		wantRID[int32(k)] = rid
	}

	// Creating the index drives a full relation scan through InsertEntry.
	idx, err := OpenBTreeIndex(dir, "employees", 4, Integer, bp, dm, hf)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	checkPinBalance(t, bp, 0, "build")

	leafCount, entries := validateTree(t, idx)
	if len(entries) != n {
		t.Fatalf("index holds %d entries, want %d", len(entries), n)
	}
	if leafCount < n/IntLeafCapacity {
		t.Fatalf("implausible leaf count %d for %d entries", leafCount, n)
	}

	// Every key scans back to the record it was extracted from.
	if err := idx.StartScan(0, GTE, int32(n-1), LTE); err != nil {
		t.Fatalf("full scan: %v", err)
	}
	for i := 0; i < n; i++ {
		rid, err := idx.ScanNext()
		if err != nil {
			t.Fatalf("scan next %d: %v", i, err)
		}
		record, err := hf.GetRow(rid)
		if err != nil {
			t.Fatalf("fetch record for %+v: %v", rid, err)
		}
		key := int32(binary.LittleEndian.Uint32(record[4:]))
		if key != int32(i) {
			t.Fatalf("scan position %d yields record with key %d", i, key)
		}
		if want := wantRID[key]; rid != want {
			t.Fatalf("key %d: rid %+v, want %+v", key, rid, want)
		}
	}
	if _, err := idx.ScanNext(); !errors.Is(err, ErrIndexScanCompleted) {
		t.Fatalf("scan past end: err = %v", err)
	}

	// Round trip: close and reopen against the same relation parameters; the
	// build must not rerun (the file exists) and scans see identical data.
	idx.Close()
	checkPinBalance(t, bp, 0, "close")

	idx2, err := OpenBTreeIndex(dir, "employees", 4, Integer, bp, dm, hf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	if err := idx2.StartScan(100, GT, 110, LTE); err != nil {
		t.Fatalf("reopened scan: %v", err)
	}
	for want := int32(101); want <= 110; want++ {
		rid, err := idx2.ScanNext()
		if err != nil {
			t.Fatalf("reopened scan next: %v", err)
		}
		record, err := hf.GetRow(rid)
		if err != nil {
			t.Fatalf("fetch record: %v", err)
		}
		if got := int32(binary.LittleEndian.Uint32(record[4:])); got != want {
			t.Fatalf("reopened scan yields key %d, want %d", got, want)
		}
	}
	if _, err := idx2.ScanNext(); !errors.Is(err, ErrIndexScanCompleted) {
		t.Fatalf("reopened scan past end: err = %v", err)
	}
}

func TestBuildFromEmptyRelation(t *testing.T) {
	bp, dm, dir := newTestEnv(t, 64)

	hfm, err := heapfile.NewHeapFileManager(dir)
	if err != nil {
		t.Fatalf("heap file manager: %v", err)
	}
	defer hfm.CloseAll()

	hf, err := hfm.CreateHeapfile("vacant", 1)
	if err != nil {
		t.Fatalf("create heap file: %v", err)
	}

	idx, err := OpenBTreeIndex(dir, "vacant", 4, Integer, bp, dm, hf)
	if err != nil {
		t.Fatalf("build over empty relation: %v", err)
	}
	defer idx.Close()

	if err := idx.StartScan(0, GTE, 10, LTE); !errors.Is(err, ErrNoSuchKeyFound) {
		t.Fatalf("scan over empty build: err = %v, want ErrNoSuchKeyFound", err)
	}
	checkPinBalance(t, bp, 0, "empty build scan")
}
