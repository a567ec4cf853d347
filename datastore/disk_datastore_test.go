package datastore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskDataStoreCreateAndSize(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "nested", "out")

	dds, err := NewDiskDataStore(root)
	if err != nil {
		t.Fatal(err)
	}

	w, err := dds.CreateFile(ctx, "intOne.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("value\n1\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	size, err := dds.FileSize(ctx, "intOne.csv")
	if err != nil {
		t.Fatal(err)
	}
	if size != 8 {
		t.Fatalf("expected 8 bytes, got %d", size)
	}

	r, err := dds.OpenFile(ctx, "intOne.csv")
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "value\n1\n" {
		t.Fatalf("read back %q", b)
	}

	// overwrite truncates
	w, err = dds.CreateFile(ctx, "intOne.csv")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	b, err = os.ReadFile(dds.Path("intOne.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 0 {
		t.Fatalf("expected truncated file, got %q", b)
	}

	if _, err := dds.FileSize(ctx, "missing.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := dds.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}
