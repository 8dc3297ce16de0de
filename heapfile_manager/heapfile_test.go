package heapfile

import (
	"KestrelDB/types"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestHeapFileOperations(t *testing.T) {
	hfm, err := NewHeapFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create heap file manager: %v", err)
	}
	defer hfm.CloseAll()

	relationName := "students"
	fileID := uint32(1)
	hf, err := hfm.CreateHeapfile(relationName, fileID)
	if err != nil {
		t.Fatalf("Failed to create heap file: %v", err)
	}

	// Rows of different sizes
	testRows := []struct {
		name string
		data []byte
	}{
		{"Row1", []byte("Alice|20|A")},
		{"Row2", []byte("Bob|21|B")},
		{"Row3", []byte("Charlie|22|A")},
		{"Row4", []byte("Diana|19|C")},
		{"Row5", []byte("Eve|20|B")},
		{"Row6", []byte("Frank|21|A")},
		{"Row7", []byte("Grace|20|B")},
		{"Row8", []byte("Henry|22|C")},
	}

	rids := make([]types.RecordID, 0, len(testRows))

	for _, row := range testRows {
		rid, err := hf.InsertRow(row.data)
		if err != nil {
			t.Fatalf("Failed to insert %s: %v", row.name, err)
		}
		if rid.PageNumber == 0 {
			t.Fatalf("%s landed on page 0; page numbers must start at 1", row.name)
		}
		rids = append(rids, rid)
	}

	// Read all rows back through the manager
	for i, rid := range rids {
		readData, err := hfm.GetRow(fileID, rid)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", testRows[i].name, err)
		}
		if string(readData) != string(testRows[i].data) {
			t.Errorf("Data mismatch for %s:\n  Expected: %s\n  Got:      %s",
				testRows[i].name, testRows[i].data, readData)
		}
	}
}

func TestHeapFilePageOverflow(t *testing.T) {
	hfm, err := NewHeapFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create heap file manager: %v", err)
	}
	defer hfm.CloseAll()

	hf, err := hfm.CreateHeapfile("wide", 1)
	if err != nil {
		t.Fatalf("Failed to create heap file: %v", err)
	}

	// Rows sized so a page holds only a handful; inserts must spill onto
	// fresh pages and stay retrievable.
	row := make([]byte, 1000)
	for i := range row {
		row[i] = byte(i)
	}

	var lastPage uint32
	sawNewPage := false
	for i := 0; i < 12; i++ {
		row[0] = byte(i)
		rid, err := hf.InsertRow(row)
		if err != nil {
			t.Fatalf("Failed to insert row %d: %v", i, err)
		}
		if lastPage != 0 && rid.PageNumber != lastPage {
			sawNewPage = true
		}
		lastPage = rid.PageNumber

		got, err := hf.GetRow(rid)
		if err != nil {
			t.Fatalf("Failed to read row %d back: %v", i, err)
		}
		if got[0] != byte(i) || len(got) != len(row) {
			t.Fatalf("row %d corrupted on read back", i)
		}
	}
	if !sawNewPage {
		t.Fatalf("12 rows of 1000 bytes never crossed a page boundary")
	}
}

func TestFileScanYieldsEveryRow(t *testing.T) {
	hfm, err := NewHeapFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create heap file manager: %v", err)
	}
	defer hfm.CloseAll()

	hf, err := hfm.CreateHeapfile("scanme", 1)
	if err != nil {
		t.Fatalf("Failed to create heap file: %v", err)
	}

	const n = 500
	want := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		data := []byte(fmt.Sprintf("row-%04d-padding-padding-padding", i))
		if _, err := hf.InsertRow(data); err != nil {
			t.Fatalf("Failed to insert row %d: %v", i, err)
		}
		want[string(data)] = false
	}

	scan := NewFileScan(hf)
	seen := 0
	for {
		rid, record, err := scan.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("scan failed after %d rows: %v", seen, err)
		}
		if rid.PageNumber == 0 {
			t.Fatalf("scan yielded page number 0")
		}
		already, known := want[string(record)]
		if !known {
			t.Fatalf("scan yielded unknown row %q", record)
		}
		if already {
			t.Fatalf("scan yielded row %q twice", record)
		}
		want[string(record)] = true
		seen++
	}

	if seen != n {
		t.Fatalf("scan yielded %d rows, want %d", seen, n)
	}
}
