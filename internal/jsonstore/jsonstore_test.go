package jsonstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type row struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRead_AbsentFileIsEmpty(t *testing.T) {
	t.Parallel()

	items, err := Read[row](filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", items)
	}
}

func TestRead_CorruptFileErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{{{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read[row](path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestWriteRead_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "items.json")
	want := []row{{Name: "a", Count: 1}, {Name: "b", Count: 2}}

	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read[row](path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("roundtrip mismatch: %#v", got)
	}
}

func TestWrite_ReplacesWholesale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.json")
	if err := Write(path, []row{{Name: "old", Count: 9}}); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, []row{{Name: "new", Count: 1}}); err != nil {
		t.Fatal(err)
	}

	got, err := Read[row](path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "new" {
		t.Errorf("previous set not discarded: %#v", got)
	}

	// no temp litter left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory should hold only the target file, got %d entries", len(entries))
	}
}

func TestWrite_NilBecomesEmptyArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.json")
	if err := Write[row](path, nil); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "[]" {
		t.Errorf("want empty JSON array, got %q", raw)
	}
}

func TestWaitForFile_Timeout(t *testing.T) {
	t.Parallel()

	err := WaitForFile(context.Background(), filepath.Join(t.TempDir(), "never.json"),
		5*time.Millisecond, 30*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("want ErrWaitTimeout, got %v", err)
	}
}

func TestWaitForFile_AppearsLater(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "late.json")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("[]"), 0o600)
	}()

	if err := WaitForFile(context.Background(), path, 5*time.Millisecond, 2*time.Second); err != nil {
		t.Fatalf("WaitForFile: %v", err)
	}
}

func TestWaitForFile_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForFile(ctx, filepath.Join(t.TempDir(), "never.json"), 5*time.Millisecond, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
