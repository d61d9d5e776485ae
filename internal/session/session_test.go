package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &FileStore{Path: filepath.Join(t.TempDir(), "state", "session.json")}

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty session, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "0xabc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(store.Path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Account != "0xabc" || got.UpdatedAt == "" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected session to be cleared")
	}
}

func TestFileStoreRejectsDirectory(t *testing.T) {
	store := &FileStore{Path: t.TempDir()}
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestNilStoresAreNoops(t *testing.T) {
	ctx := context.Background()
	var file *FileStore
	var db *DBStore
	for _, s := range []Store{file, db, &FileStore{}} {
		if _, ok, err := s.Load(ctx); err != nil || ok {
			t.Fatalf("expected noop load, ok=%v err=%v", ok, err)
		}
		if err := s.Save(ctx, "0x1"); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("clear: %v", err)
		}
	}
}
