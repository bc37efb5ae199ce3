// Package feedback provides the append-only analyst verdict log and the
// aggregation the triage engine uses to adjust confidence. The review
// API is the only writer; the triage engine is the only reader of
// aggregates.
package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/sentinel/internal/alert"
)

// Action is an analyst verdict on a triaged alert.
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Validation errors returned at the write boundary. The review API maps
// these to specific 400 responses.
var (
	ErrNoAlertID  = xerrors.New("feedback alert_id is required")
	ErrNoCategory = xerrors.New("feedback category is missing or unknown")
	ErrBadAction  = xerrors.New(`feedback action must be "approved" or "rejected"`)
	ErrNoReason   = xerrors.New("feedback reason (justification) must not be empty")
)

// Entry is one analyst verdict. Immutable once written. The category is
// denormalized from the alert so aggregation never needs the alert set.
type Entry struct {
	ID        string         `json:"id"`
	AlertID   string         `json:"alert_id"`
	Category  alert.Category `json:"category"`
	Action    Action         `json:"action"`
	Reason    string         `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the required fields. ID and CreatedAt are filled by
// the store on append and are not validated here.
func (e *Entry) Validate() error {
	var errs []error
	if strings.TrimSpace(e.AlertID) == "" {
		errs = append(errs, ErrNoAlertID)
	}
	if !e.Category.Valid() {
		errs = append(errs, ErrNoCategory)
	}
	if e.Action != ActionApproved && e.Action != ActionRejected {
		errs = append(errs, ErrBadAction)
	}
	if strings.TrimSpace(e.Reason) == "" {
		errs = append(errs, ErrNoReason)
	}
	return errors.Join(errs...)
}

// Store is the persistence boundary for the feedback sequence.
// Append validates and rejects invalid entries; List returns the full
// ordered sequence, empty when no feedback exists yet.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context) ([]Entry, error)
}
