package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "todoist.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePutGet(t *testing.T) {
	c := openTestCache(t)

	if err := c.Put("client-1", "task", "1001"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get("client-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "1001" {
		t.Errorf("Get = %q, want 1001", got)
	}

	// Missing keys are not an error.
	got, err = c.Get("absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "" {
		t.Errorf("Get(absent) = %q, want empty", got)
	}
}

func TestCachePutOverwrites(t *testing.T) {
	c := openTestCache(t)

	if err := c.Put("client-1", "task", "old"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Put("client-1", "task", "new"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get("client-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "new" {
		t.Errorf("Get = %q, want the overwritten value", got)
	}

	count, err := c.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestCachePutAllAndLoad(t *testing.T) {
	c := openTestCache(t)

	if err := c.PutAll("tag", map[string]string{
		"t1": "101",
		"t2": "102",
	}); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	if err := c.PutAll("project", map[string]string{"p1": "201"}); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	// Empty batches are a no-op.
	if err := c.PutAll("task", nil); err != nil {
		t.Fatalf("PutAll(nil) failed: %v", err)
	}

	ids, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]string{"t1": "101", "t2": "102", "p1": "201"}
	if len(ids) != len(want) {
		t.Fatalf("Load returned %d entries, want %d", len(ids), len(want))
	}
	for clientID, remoteID := range want {
		if ids[clientID] != remoteID {
			t.Errorf("ids[%s] = %q, want %q", clientID, ids[clientID], remoteID)
		}
	}
}

func TestCacheLastSync(t *testing.T) {
	c := openTestCache(t)

	last, err := c.LastSync()
	if err != nil {
		t.Fatalf("LastSync failed: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("empty cache last sync = %v, want zero time", last)
	}

	before := time.Now().UTC().Add(-time.Second)
	if err := c.Put("client-1", "task", "1001"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	last, err = c.LastSync()
	if err != nil {
		t.Fatalf("LastSync failed: %v", err)
	}
	if last.Before(before) {
		t.Errorf("last sync = %v, want at or after %v", last, before)
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todoist.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Put("client-1", "task", "1001"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get("client-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "1001" {
		t.Errorf("Get after reopen = %q, want 1001", got)
	}
}
