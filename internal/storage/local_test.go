package storage

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content := []byte(`{"users":[]}`)
	path, err := store.Save(context.Background(), "backup.json", bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if filepath.Base(path) != "backup.json" {
		t.Errorf("stored path = %q, want the artifact name preserved", path)
	}

	ok, err := store.Exists(context.Background(), path)
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v; want true", ok, err)
	}

	reader, size, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer reader.Close()
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("read back %q, want %q", data, content)
	}
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := store.Save(context.Background(), "gone.csv", bytes.NewReader([]byte("id\n")), 3)
	if err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	if err := store.Delete(context.Background(), path); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	ok, err := store.Exists(context.Background(), path)
	if err != nil || ok {
		t.Errorf("exists after delete = %v, %v; want false", ok, err)
	}

	// deleting an already-removed artifact is not an error
	if err := store.Delete(context.Background(), path); err != nil {
		t.Errorf("second delete = %v, want nil", err)
	}
}

func TestLocalStoreSaveStripsDirectoryTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := store.Save(context.Background(), "../escape.json", bytes.NewReader([]byte("{}")), 2)
	if err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("artifact escaped the store directory: %s", path)
	}
}

func TestLocalStoreRequiresDirectory(t *testing.T) {
	if _, err := NewLocalStore(""); err == nil {
		t.Error("expected error for empty directory")
	}
}
