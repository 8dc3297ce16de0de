package heapfile

import (
	"KestrelDB/types"
	"fmt"
	"path/filepath"
)

// NewHeapFileManager creates a new heap file manager rooted at baseDir
func NewHeapFileManager(baseDir string) (*HeapFileManager, error) {
	return &HeapFileManager{
		baseDir: baseDir,
		files:   make(map[uint32]*HeapFile),
	}, nil
}

// CreateHeapfile opens or creates the heap file for a relation and caches it
func (hfm *HeapFileManager) CreateHeapfile(relationName string, fileID uint32) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if hf, exists := hfm.files[fileID]; exists {
		return hf, nil
	}

	filePath := filepath.Join(hfm.baseDir, fmt.Sprintf("%s_%d.heap", relationName, fileID))

	pager, err := NewHeapFilePager(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create pager for heap file: %w", err)
	}

	heapFile := &HeapFile{
		fileID:   fileID,
		pager:    pager,
		filePath: filePath,
	}

	hfm.files[fileID] = heapFile
	return heapFile, nil
}

// InsertRow inserts a row into the specified heap file
func (hfm *HeapFileManager) InsertRow(fileID uint32, rowData []byte) (types.RecordID, error) {
	hf, err := hfm.GetHeapFileByID(fileID)
	if err != nil {
		return types.RecordID{}, err
	}
	return hf.InsertRow(rowData)
}

// GetRow retrieves a row from the specified heap file
func (hfm *HeapFileManager) GetRow(fileID uint32, rid types.RecordID) ([]byte, error) {
	hf, err := hfm.GetHeapFileByID(fileID)
	if err != nil {
		return nil, err
	}
	return hf.GetRow(rid)
}

// GetHeapFileByID returns the cached heap file with the given id
func (hfm *HeapFileManager) GetHeapFileByID(fileID uint32) (*HeapFile, error) {
	hfm.mu.RLock()
	hf, exists := hfm.files[fileID]
	hfm.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("heap file %d not found", fileID)
	}

	return hf, nil
}

// CloseAll closes all heap files managed by this manager
func (hfm *HeapFileManager) CloseAll() error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	var lastErr error
	for fileID, heapFile := range hfm.files {
		if err := heapFile.pager.Close(); err != nil {
			fmt.Printf("Error closing heap file %d: %v\n", fileID, err)
			lastErr = err
		}
		delete(hfm.files, fileID)
	}

	return lastErr
}
