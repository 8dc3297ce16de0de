// Benchmark harness: the on-disk B+ tree index vs a Pebble LSM over the
// same integer workload. Writes per-operation latencies to results/bench.csv
// and renders a latency plot to results/latency.png.
// Run: go run ./cmd/bench -n 50000
package main

import (
	heapfile "KestrelDB/heapfile_manager"
	"KestrelDB/storage_engine/access/indexfile_manager/btree"
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/pebble"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type benchResult struct {
	Engine    string
	Operation string
	Ops       int
	TotalNs   int64
	NsPerOp   int64
}

func main() {
	n := flag.Int("n", 50_000, "number of keys")
	scans := flag.Int("scans", 200, "number of range scans")
	width := flag.Int("width", 500, "width of each scanned key range")
	flag.Parse()

	if err := os.MkdirAll("results", 0755); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}

	workDir, err := os.MkdirTemp("", "kestrel_bench")
	if err != nil {
		log.Fatalf("mktemp: %v", err)
	}
	defer os.RemoveAll(workDir)

	rng := rand.New(rand.NewSource(99))
	keys := rng.Perm(*n)

	fmt.Printf("--- B+ tree index: %d inserts, %d scans ---\n", *n, *scans)
	btreeResults := benchBTree(workDir, keys, *scans, *width)

	fmt.Printf("--- Pebble LSM: %d inserts, %d scans ---\n", *n, *scans)
	pebbleResults := benchPebble(workDir, keys, *scans, *width)

	results := append(btreeResults, pebbleResults...)

	csvPath := filepath.Join("results", "bench.csv")
	if err := writeCSV(csvPath, results); err != nil {
		log.Fatalf("write csv: %v", err)
	}
	fmt.Println("Wrote", csvPath)

	plotPath := filepath.Join("results", "latency.png")
	if err := renderPlot(plotPath, results); err != nil {
		log.Fatalf("render plot: %v", err)
	}
	fmt.Println("Wrote", plotPath)
}

// record layout: key int32 at offset 0, then padding.
func benchRecord(key int32) []byte {
	record := make([]byte, 32)
	binary.LittleEndian.PutUint32(record[0:], uint32(key))
	return record
}

func benchBTree(workDir string, keys []int, scans, width int) []benchResult {
	diskManager, err := diskmanager.NewDiskManager()
	if err != nil {
		log.Fatalf("disk manager: %v", err)
	}
	defer diskManager.CloseAll()
	bufferPool := bufferpool.NewBufferPool(4096, diskManager)

	hfm, err := heapfile.NewHeapFileManager(workDir)
	if err != nil {
		log.Fatalf("heap file manager: %v", err)
	}
	defer hfm.CloseAll()

	hf, err := hfm.CreateHeapfile("bench", 1)
	if err != nil {
		log.Fatalf("create heap file: %v", err)
	}

	idx, err := btree.OpenBTreeIndex(workDir, "bench", 0, btree.Integer, bufferPool, diskManager, nil)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	start := time.Now()
	for _, k := range keys {
		rid, err := hf.InsertRow(benchRecord(int32(k)))
		if err != nil {
			log.Fatalf("insert row: %v", err)
		}
		if err := idx.InsertEntry(int32(k), rid); err != nil {
			log.Fatalf("insert entry: %v", err)
		}
	}
	insertNs := time.Since(start).Nanoseconds()

	rng := rand.New(rand.NewSource(7))
	start = time.Now()
	matched := 0
	for i := 0; i < scans; i++ {
		low := int32(rng.Intn(len(keys)))
		high := low + int32(width)
		if err := idx.StartScan(low, btree.GTE, high, btree.LTE); err != nil {
			if errors.Is(err, btree.ErrNoSuchKeyFound) {
				continue
			}
			log.Fatalf("start scan: %v", err)
		}
		for {
			if _, err := idx.ScanNext(); err != nil {
				break
			}
			matched++
		}
	}
	scanNs := time.Since(start).Nanoseconds()
	fmt.Printf("  scans matched %d entries\n", matched)

	return []benchResult{
		{Engine: "btree", Operation: "insert", Ops: len(keys), TotalNs: insertNs, NsPerOp: insertNs / int64(len(keys))},
		{Engine: "btree", Operation: "scan", Ops: scans, TotalNs: scanNs, NsPerOp: scanNs / int64(scans)},
	}
}

func benchPebble(workDir string, keys []int, scans, width int) []benchResult {
	db, err := pebble.Open(filepath.Join(workDir, "pebble"), &pebble.Options{
		MemTableSize: 16 << 20,
	})
	if err != nil {
		log.Fatalf("pebble open: %v", err)
	}
	defer db.Close()

	value := make([]byte, 8)

	start := time.Now()
	for _, k := range keys {
		if err := db.Set(encodeKey(int32(k)), value, pebble.NoSync); err != nil {
			log.Fatalf("pebble set: %v", err)
		}
	}
	insertNs := time.Since(start).Nanoseconds()

	rng := rand.New(rand.NewSource(7))
	start = time.Now()
	matched := 0
	for i := 0; i < scans; i++ {
		low := int32(rng.Intn(len(keys)))
		high := low + int32(width)
		iter, err := db.NewIter(&pebble.IterOptions{
			LowerBound: encodeKey(low),
			UpperBound: encodeKey(high + 1),
		})
		if err != nil {
			log.Fatalf("pebble iter: %v", err)
		}
		for iter.First(); iter.Valid(); iter.Next() {
			matched++
		}
		iter.Close()
	}
	scanNs := time.Since(start).Nanoseconds()
	fmt.Printf("  scans matched %d entries\n", matched)

	return []benchResult{
		{Engine: "pebble", Operation: "insert", Ops: len(keys), TotalNs: insertNs, NsPerOp: insertNs / int64(len(keys))},
		{Engine: "pebble", Operation: "scan", Ops: scans, TotalNs: scanNs, NsPerOp: scanNs / int64(scans)},
	}
}

// encodeKey encodes an int32 big-endian so byte order matches key order.
func encodeKey(k int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

func writeCSV(path string, results []benchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"engine", "operation", "ops", "total_ns", "ns_per_op"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{
			r.Engine,
			r.Operation,
			strconv.Itoa(r.Ops),
			strconv.FormatInt(r.TotalNs, 10),
			strconv.FormatInt(r.NsPerOp, 10),
		}); err != nil {
			return err
		}
	}
	return nil
}

func renderPlot(path string, results []benchResult) error {
	p := plot.New()
	p.Title.Text = "Per-operation latency"
	p.Y.Label.Text = "ns/op"

	bars := make(plotter.Values, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		bars[i] = float64(r.NsPerOp)
		labels[i] = r.Engine + "/" + r.Operation
	}

	chart, err := plotter.NewBarChart(bars, vg.Points(30))
	if err != nil {
		return err
	}
	p.Add(chart)
	p.NominalX(labels...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
