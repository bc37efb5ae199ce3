package triage

import (
	"context"
	"fmt"
	"os"

	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/sentinel/internal/jsonstore"
)

// ErrNotAvailable means the triage stage has not produced its output
// yet. Distinct from an empty set, which is a legitimate state.
var ErrNotAvailable = xerrors.New("triage data not yet available")

// FileSet reads the triage set the batch stage wrote. Every Load reads
// fresh so the review API picks up a new run without restarting.
type FileSet struct {
	Path string
}

// Load returns the current triage set. A missing file yields
// ErrNotAvailable; a present but empty file yields an empty set.
func (f FileSet) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(f.Path); os.IsNotExist(err) {
		return nil, ErrNotAvailable
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	return jsonstore.Read[Record](f.Path)
}
