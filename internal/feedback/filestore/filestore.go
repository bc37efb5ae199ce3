// Package filestore persists the feedback sequence as a JSON array
// file. Appends are serialized behind a single writer lock and the file
// is replaced atomically, so concurrent submissions cannot drop entries.
package filestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sentinel/internal/feedback"
	"github.com/linnemanlabs/sentinel/internal/jsonstore"
)

// Store is a file-backed feedback.Store.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store writing to path. The file does not need to exist
// yet; a fresh deployment reads as an empty sequence.
func New(path string) *Store {
	return &Store{path: path}
}

// Append validates the entry, assigns its ID and timestamp if unset,
// and persists the extended sequence via read-modify-write under the
// writer lock. Last writer wins across processes; within this process
// appends are fully serialized.
func (s *Store) Append(ctx context.Context, e *feedback.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := jsonstore.Read[feedback.Entry](s.path)
	if err != nil {
		return fmt.Errorf("load feedback: %w", err)
	}

	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	entries = append(entries, *e)

	if err := jsonstore.Write(s.path, entries); err != nil {
		return fmt.Errorf("persist feedback: %w", err)
	}
	return nil
}

// List returns the full ordered sequence. Absent file reads as empty.
func (s *Store) List(ctx context.Context) ([]feedback.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return jsonstore.Read[feedback.Entry](s.path)
}
