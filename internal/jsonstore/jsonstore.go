// Package jsonstore reads and writes the JSON-array files the pipeline
// stages hand off to each other. Writes go through a temp file and an
// atomic rename so a reader never observes a partially written set.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/linnemanlabs/go-core/xerrors"
)

// ErrWaitTimeout is returned by WaitForFile when the wait budget is
// exhausted before the file appears.
var ErrWaitTimeout = xerrors.New("timed out waiting for file")

// Read loads a JSON array file. An absent file yields an empty slice,
// not an error; a present but unparsable file is an error.
func Read[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Write replaces the file with the given items as one atomic operation:
// marshal, write to a temp file in the same directory, fsync, rename.
func Write[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// WaitForFile polls until path exists, the context is cancelled, or
// maxWait elapses. The timeout error wraps ErrWaitTimeout so callers can
// report "upstream stage has not produced its output" distinctly.
func WaitForFile(ctx context.Context, path string, interval, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s not present after %s", ErrWaitTimeout, path, maxWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
