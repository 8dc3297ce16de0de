// Seed program: creates a sample relation, builds the B+ tree index over its
// integer attribute, and runs a few range scans against it.
// Run: go run ./cmd/seed
// Then inspect: go run ./cmd/inspect_idx data/indexes/employees.4
package main

import (
	heapfile "KestrelDB/heapfile_manager"
	indexfile "KestrelDB/storage_engine/access/indexfile_manager"
	"KestrelDB/storage_engine/access/indexfile_manager/btree"
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
)

const (
	tablesDir  = "data/tables"
	indexesDir = "data/indexes"

	relationName   = "employees"
	attrByteOffset = 4 // the salary attribute inside the record
	rows           = 2000
)

// record layout: id int32 | salary int32 | name [24]byte
func makeRecord(id int32, salary int32, name string) []byte {
	record := make([]byte, 32)
	binary.LittleEndian.PutUint32(record[0:], uint32(id))
	binary.LittleEndian.PutUint32(record[4:], uint32(salary))
	copy(record[8:], name)
	return record
}

func main() {
	if err := os.MkdirAll(tablesDir, 0755); err != nil {
		log.Fatalf("mkdir tables: %v", err)
	}

	diskManager, err := diskmanager.NewDiskManager()
	if err != nil {
		log.Fatalf("disk manager: %v", err)
	}
	defer diskManager.CloseAll()

	bufferPool := bufferpool.NewBufferPool(256, diskManager)

	heapFileManager, err := heapfile.NewHeapFileManager(tablesDir)
	if err != nil {
		log.Fatalf("heap file manager: %v", err)
	}
	defer heapFileManager.CloseAll()

	indexFileManager, err := indexfile.NewIndexFileManager(indexesDir, diskManager, bufferPool)
	if err != nil {
		log.Fatalf("index file manager: %v", err)
	}
	defer indexFileManager.CloseAll()

	fmt.Printf("Seeding relation %q with %d rows...\n", relationName, rows)

	hf, err := heapFileManager.CreateHeapfile(relationName, 1)
	if err != nil {
		log.Fatalf("create heap file: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for id := int32(1); id <= rows; id++ {
		salary := int32(30_000 + rng.Intn(120_000))
		name := fmt.Sprintf("emp-%05d", id)
		if _, err := hf.InsertRow(makeRecord(id, salary, name)); err != nil {
			log.Fatalf("insert row %d: %v", id, err)
		}
	}

	fmt.Println("Building index over the salary attribute...")
	idx, err := indexFileManager.GetOrCreateIndex(relationName, attrByteOffset, btree.Integer, hf)
	if err != nil {
		log.Fatalf("build index: %v", err)
	}

	fmt.Println("\n--- salaries in [40000, 40500] ---")
	runScan(idx, hf, 40_000, btree.GTE, 40_500, btree.LTE)

	fmt.Println("\n--- salaries in (100000, 100400) ---")
	runScan(idx, hf, 100_000, btree.GT, 100_400, btree.LT)

	fmt.Println("\nDone. Inspect:")
	fmt.Println("  - Heap file:  ", hf.FilePath())
	fmt.Println("  - Index file: ", idx.FilePath())
}

func runScan(idx *btree.BTreeIndex, hf *heapfile.HeapFile, low int32, lowOp btree.Operator, high int32, highOp btree.Operator) {
	if err := idx.StartScan(low, lowOp, high, highOp); err != nil {
		if errors.Is(err, btree.ErrNoSuchKeyFound) {
			fmt.Println("  (no matching entries)")
			return
		}
		log.Fatalf("start scan: %v", err)
	}

	count := 0
	for {
		rid, err := idx.ScanNext()
		if errors.Is(err, btree.ErrIndexScanCompleted) {
			break
		}
		if err != nil {
			log.Fatalf("scan next: %v", err)
		}

		record, err := hf.GetRow(rid)
		if err != nil {
			log.Fatalf("fetch record %v: %v", rid, err)
		}
		id := int32(binary.LittleEndian.Uint32(record[0:]))
		salary := int32(binary.LittleEndian.Uint32(record[4:]))
		if count < 10 {
			fmt.Printf("  page %d slot %d → id=%d salary=%d\n", rid.PageNumber, rid.SlotNumber, id, salary)
		}
		count++
	}
	fmt.Printf("  %d matching entries\n", count)
}
