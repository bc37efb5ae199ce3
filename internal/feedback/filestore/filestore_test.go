package filestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/feedback"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "feedback.json"))
}

func TestAppendList(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	e := &feedback.Entry{
		AlertID:  "a1",
		Category: alert.CategoryOpenPort,
		Action:   feedback.ActionApproved,
		Reason:   "confirmed rogue service",
	}
	if err := store.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("Append should assign ID and CreatedAt")
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].AlertID != "a1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	// the written entry participates in aggregation
	stats := feedback.Aggregate(entries)
	if stats[alert.CategoryOpenPort].Approved != 1 {
		t.Errorf("aggregation missed the appended entry: %+v", stats)
	}
}

func TestAppend_RejectsEmptyReason(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.Append(context.Background(), &feedback.Entry{
		AlertID:  "a1",
		Category: alert.CategoryOpenPort,
		Action:   feedback.ActionApproved,
		Reason:   "  ",
	})
	if !errors.Is(err, feedback.ErrNoReason) {
		t.Fatalf("want ErrNoReason, got %v", err)
	}

	entries, listErr := store.List(context.Background())
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(entries) != 0 {
		t.Error("rejected entry must not be persisted")
	}
}

func TestList_AbsentFileIsEmpty(t *testing.T) {
	t.Parallel()

	entries, err := newTestStore(t).List(context.Background())
	if err != nil {
		t.Fatalf("List on fresh deployment: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want empty sequence, got %d entries", len(entries))
	}
}

func TestAppend_ConcurrentWritersLoseNothing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Append(ctx, &feedback.Entry{
				AlertID:  fmt.Sprintf("a%d", i),
				Category: alert.CategoryCorrelation,
				Action:   feedback.ActionRejected,
				Reason:   "noise",
			})
			if err != nil {
				t.Errorf("Append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("got %d entries, want %d (concurrent appends dropped writes)", len(entries), n)
	}

	ids := make(map[string]bool, n)
	for _, e := range entries {
		ids[e.ID] = true
	}
	if len(ids) != n {
		t.Errorf("expected %d distinct IDs, got %d", n, len(ids))
	}
}
