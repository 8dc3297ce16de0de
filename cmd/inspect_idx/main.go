// Inspect a B+ tree index file.
// Usage: go run ./cmd/inspect_idx <path-to-index-file>
// Example: go run ./cmd/inspect_idx data/indexes/employees.4
package main

import (
	"fmt"
	"os"

	"KestrelDB/storage_engine/access/indexfile_manager/btree"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s data/indexes/employees.4\n", os.Args[0])
		os.Exit(1)
	}
	if err := btree.InspectIndexFile(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
