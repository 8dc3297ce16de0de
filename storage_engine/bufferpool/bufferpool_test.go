package bufferpool

import (
	diskmanager "KestrelDB/storage_engine/disk_manager"
	"KestrelDB/types"
	"path/filepath"
	"testing"
)

func newPoolEnv(t *testing.T, capacity int) (*BufferPool, *diskmanager.DiskManager, uint32) {
	t.Helper()

	dm, err := diskmanager.NewDiskManager()
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	t.Cleanup(func() { dm.CloseAll() })

	fileID, err := dm.OpenFile(filepath.Join(t.TempDir(), "pool.idx"))
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}

	return NewBufferPool(capacity, dm), dm, fileID
}

func TestNewPagePinsAndDirties(t *testing.T) {
	bp, _, fileID := newPoolEnv(t, 8)

	pg, err := bp.NewPage(fileID, types.PageTypeBTreeNode)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}

	if pg.PinCount != 1 {
		t.Fatalf("new page pin count = %d, want 1", pg.PinCount)
	}
	if !pg.IsDirty {
		t.Fatalf("new page not marked dirty")
	}
	if local := pg.ID & 0xFFFFFFFF; local != 1 {
		t.Fatalf("first page local number = %d, want 1", local)
	}

	stats := bp.GetStats()
	if stats.PinnedPages != 1 || stats.TotalPages != 1 {
		t.Fatalf("stats = %+v after NewPage", stats)
	}

	if err := bp.UnpinPage(pg.ID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
	if bp.GetStats().PinnedPages != 0 {
		t.Fatalf("pin survived unpin")
	}
}

func TestFetchHitAndMiss(t *testing.T) {
	bp, _, fileID := newPoolEnv(t, 8)

	pg, err := bp.NewPage(fileID, types.PageTypeBTreeNode)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pg.Data[100] = 0x5A
	if err := bp.UnpinPage(pg.ID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	// Hit: same frame comes back.
	again, err := bp.FetchPage(pg.ID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if again != pg {
		t.Fatalf("fetch of cached page returned a different frame")
	}
	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	// Miss: flush, drop, fetch again — data must come back from disk.
	if err := bp.FlushPage(pg.ID); err != nil {
		t.Fatalf("FlushPage: %v", err)
	}
	if err := bp.DropFile(fileID); err != nil {
		t.Fatalf("DropFile: %v", err)
	}
	if bp.Size() != 0 {
		t.Fatalf("pool size %d after DropFile, want 0", bp.Size())
	}

	reloaded, err := bp.FetchPage(pg.ID)
	if err != nil {
		t.Fatalf("FetchPage after drop: %v", err)
	}
	if reloaded.Data[100] != 0x5A {
		t.Fatalf("reloaded page lost its data")
	}
	if err := bp.UnpinPage(pg.ID, false); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}
}

func TestPinnedPagesSurviveEviction(t *testing.T) {
	bp, _, fileID := newPoolEnv(t, 2)

	// Two pages fill the pool; keep the first pinned.
	pinned, err := bp.NewPage(fileID, types.PageTypeBTreeNode)
	if err != nil {
		t.Fatalf("NewPage pinned: %v", err)
	}
	pinned.Data[0] = 1

	second, err := bp.NewPage(fileID, types.PageTypeBTreeNode)
	if err != nil {
		t.Fatalf("NewPage second: %v", err)
	}
	if err := bp.UnpinPage(second.ID, true); err != nil {
		t.Fatalf("UnpinPage second: %v", err)
	}

	// A third page must evict the unpinned one, not the pinned one.
	third, err := bp.NewPage(fileID, types.PageTypeBTreeNode)
	if err != nil {
		t.Fatalf("NewPage third: %v", err)
	}
	if bp.GetPage(pinned.ID) == nil {
		t.Fatalf("pinned page was evicted")
	}
	if bp.GetPage(second.ID) != nil {
		t.Fatalf("unpinned page was not the eviction victim")
	}

	// The evicted dirty page was written back; fetching it again re-reads it.
	if err := bp.UnpinPage(third.ID, true); err != nil {
		t.Fatalf("UnpinPage third: %v", err)
	}
	back, err := bp.FetchPage(second.ID)
	if err != nil {
		t.Fatalf("FetchPage evicted: %v", err)
	}
	if err := bp.UnpinPage(back.ID, false); err != nil {
		t.Fatalf("UnpinPage back: %v", err)
	}
	if err := bp.UnpinPage(pinned.ID, true); err != nil {
		t.Fatalf("UnpinPage pinned: %v", err)
	}
}

func TestEvictionFailsWhenAllPinned(t *testing.T) {
	bp, _, fileID := newPoolEnv(t, 2)

	for i := 0; i < 2; i++ {
		if _, err := bp.NewPage(fileID, types.PageTypeBTreeNode); err != nil {
			t.Fatalf("NewPage %d: %v", i, err)
		}
	}

	// Both frames pinned: the pool must refuse a third rather than evict.
	if _, err := bp.NewPage(fileID, types.PageTypeBTreeNode); err == nil {
		t.Fatalf("NewPage succeeded with every frame pinned")
	}
}

func TestFlushFileWritesDirtyPages(t *testing.T) {
	bp, dm, fileID := newPoolEnv(t, 8)

	pg, err := bp.NewPage(fileID, types.PageTypeBTreeNode)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pg.Data[7] = 0x77
	if err := bp.UnpinPage(pg.ID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	if err := bp.FlushFile(fileID); err != nil {
		t.Fatalf("FlushFile: %v", err)
	}
	if bp.GetStats().DirtyPages != 0 {
		t.Fatalf("dirty pages survived FlushFile")
	}

	// The bytes are on disk: read through the disk manager directly.
	got, err := dm.ReadPage(pg.ID)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if got.Data[7] != 0x77 {
		t.Fatalf("flushed byte = 0x%X, want 0x77", got.Data[7])
	}
}
