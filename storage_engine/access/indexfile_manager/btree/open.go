package btree

import (
	heapfile "KestrelDB/heapfile_manager"
	"KestrelDB/storage_engine/bufferpool"
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"KestrelDB/types"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// IndexFileName returns the file name an index over (relation, attribute
// byte offset) lives under: "{relation}.{offset}".
func IndexFileName(relationName string, attrByteOffset int) string {
	return fmt.Sprintf("%s.%d", relationName, attrByteOffset)
}

// OpenBTreeIndex opens the index for (relationName, attrByteOffset) under
// baseDir, creating and bulk-building it from relation when the file does
// not exist yet. An existing file's meta page must match the parameters or
// the open fails with ErrBadIndexInfo and the file is left untouched.
//
// relation may be nil when creating an index over an empty relation.
func OpenBTreeIndex(baseDir, relationName string, attrByteOffset int, attrType Datatype,
	bufferPool *bufferpool.BufferPool, diskManager *diskmanager.DiskManager,
	relation *heapfile.HeapFile) (*BTreeIndex, error) {

	if attrType != Integer {
		return nil, fmt.Errorf("open index: unsupported attribute type %d, only INTEGER keys are indexed", attrType)
	}
	if attrByteOffset < 0 {
		return nil, fmt.Errorf("open index: negative attribute byte offset %d", attrByteOffset)
	}

	indexPath := filepath.Join(baseDir, IndexFileName(relationName, attrByteOffset))

	_, statErr := os.Stat(indexPath)
	exists := statErr == nil

	fileID, err := diskManager.OpenFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open index file %s: %w", indexPath, err)
	}

	idx := &BTreeIndex{
		filePath:       indexPath,
		fileID:         fileID,
		bufferPool:     bufferPool,
		diskManager:    diskManager,
		attrByteOffset: attrByteOffset,
		attributeType:  attrType,
		leafOccupancy:  IntLeafCapacity,
		nodeOccupancy:  IntNonLeafCapacity,
	}

	if exists {
		if err := idx.openExisting(relationName); err != nil {
			_ = diskManager.CloseFile(fileID)
			return nil, err
		}
		return idx, nil
	}

	if err := idx.createAndBuild(relationName, relation); err != nil {
		_ = diskManager.CloseFile(fileID)
		return nil, err
	}
	return idx, nil
}

// openExisting reads the meta page and validates it against the open
// parameters. The meta page is the first page of the file; the initial leaf
// root was allocated right after it, so its number is meta+1 for the
// lifetime of the file even when the current root has moved.
func (idx *BTreeIndex) openExisting(relationName string) error {
	idx.headerPageNo = 1

	pg, err := idx.fetchPage(idx.headerPageNo)
	if err != nil {
		return fmt.Errorf("read index meta page: %w", err)
	}

	meta := metaView(pg)
	storedName := meta.relationName()
	wantName := relationName
	if len(wantName) > metaNameLen {
		wantName = wantName[:metaNameLen]
	}

	if storedName != wantName ||
		int(meta.attrByteOffset()) != idx.attrByteOffset ||
		meta.attrType() != idx.attributeType {
		idx.unpinPage(idx.headerPageNo, false)
		return fmt.Errorf("%w: %s holds (%q, offset %d, type %d)",
			ErrBadIndexInfo, idx.filePath, storedName, meta.attrByteOffset(), meta.attrType())
	}

	idx.rootPageNo = meta.rootPageNo()
	idx.unpinPage(idx.headerPageNo, false)
	idx.initialRootPageNo = idx.headerPageNo + 1
	return nil
}

// createAndBuild formats a fresh index file (meta page plus an empty leaf
// root) and then bulk-loads it by scanning the base relation.
func (idx *BTreeIndex) createAndBuild(relationName string, relation *heapfile.HeapFile) error {
	headerPg, err := idx.bufferPool.NewPage(idx.fileID, types.PageTypeMetadata)
	if err != nil {
		return fmt.Errorf("allocate index meta page: %w", err)
	}
	idx.headerPageNo = uint32(headerPg.ID & 0xFFFFFFFF)

	rootNo, rootPg, err := idx.allocPage()
	if err != nil {
		idx.unpinPage(idx.headerPageNo, false)
		return fmt.Errorf("allocate initial root page: %w", err)
	}
	idx.rootPageNo = rootNo
	idx.initialRootPageNo = rootNo

	meta := metaView(headerPg)
	meta.setRelationName(relationName)
	meta.setAttrByteOffset(int32(idx.attrByteOffset))
	meta.setAttrType(idx.attributeType)
	meta.setRootPageNo(idx.rootPageNo)

	// The frame comes zeroed; the empty leaf root needs nothing beyond an
	// explicit end-of-chain marker.
	leafView(rootPg).setRightSibling(0)

	idx.unpinPage(idx.headerPageNo, true)
	idx.unpinPage(rootNo, true)

	if relation == nil {
		return idx.bufferPool.FlushFile(idx.fileID)
	}
	return idx.buildFromRelation(relation)
}

// buildFromRelation drives the relation scanner through InsertEntry. End of
// relation is io.EOF from the scanner; it is consumed here and turned into
// a full flush of the index file.
func (idx *BTreeIndex) buildFromRelation(relation *heapfile.HeapFile) error {
	scan := heapfile.NewFileScan(relation)
	for {
		rid, record, err := scan.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("relation scan during index build: %w", err)
		}
		if len(record) < idx.attrByteOffset+keySize {
			return fmt.Errorf("index build: record at page %d slot %d is %d bytes, too short for attribute at offset %d",
				rid.PageNumber, rid.SlotNumber, len(record), idx.attrByteOffset)
		}
		key := int32(binary.LittleEndian.Uint32(record[idx.attrByteOffset:]))
		if err := idx.InsertEntry(key, rid); err != nil {
			return fmt.Errorf("index build: insert key %d: %w", key, err)
		}
	}

	return idx.bufferPool.FlushFile(idx.fileID)
}

// Close tears down any active scan, flushes the index file, and closes it.
// Close never fails; late flush or close errors are reported on stderr and
// swallowed because there is nothing the caller can still do about them.
func (idx *BTreeIndex) Close() {
	if idx.scan.active {
		idx.unpinPage(idx.scan.currentPageNo, false)
		idx.scan = scanState{}
	}

	if err := idx.bufferPool.DropFile(idx.fileID); err != nil {
		fmt.Fprintf(os.Stderr, "index close: flush %s: %v\n", idx.filePath, err)
	}
	if err := idx.diskManager.CloseFile(idx.fileID); err != nil {
		fmt.Fprintf(os.Stderr, "index close: %s: %v\n", idx.filePath, err)
	}
}

// FilePath returns the index file's location on disk.
func (idx *BTreeIndex) FilePath() string {
	return idx.filePath
}
