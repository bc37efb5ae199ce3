// Package review serves the analyst-facing HTTP API over the triage set
// and the feedback store.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sentinel/internal/feedback"
	"github.com/linnemanlabs/sentinel/internal/triage"
)

// TriageSource loads the current triage set. A source must distinguish
// "not produced yet" (triage.ErrNotAvailable) from an empty set.
type TriageSource interface {
	Load(ctx context.Context) ([]triage.Record, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	triage   TriageSource
	feedback feedback.Store
}

// New creates a new API handler.
func New(logger log.Logger, src TriageSource, store feedback.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if src == nil {
		panic(xerrors.New("triage source is required"))
	}
	if store == nil {
		panic(xerrors.New("feedback store is required"))
	}
	return &API{
		logger:   logger,
		triage:   src,
		feedback: store,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/triage", a.handleListTriage)
		r.Get("/triage/{id}", a.handleGetTriage)
		r.Get("/feedback", a.handleListFeedback)
		r.Post("/feedback", a.handleSubmitFeedback)
		r.Get("/stats", a.handleStats)
	})
}

func (a *API) handleListTriage(w http.ResponseWriter, r *http.Request) {
	records, ok := a.loadTriage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (a *API) handleGetTriage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sentinel.alert.id", id))

	records, ok := a.loadTriage(w, r)
	if !ok {
		return
	}
	for i := range records {
		if records[i].Alert.ID == id {
			writeJSON(w, http.StatusOK, records[i])
			return
		}
	}
	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}

// loadTriage fetches the triage set and maps the error taxonomy: a run
// that has not happened yet is 503, anything else is 500. Returns false
// when a response has already been written.
func (a *API) loadTriage(w http.ResponseWriter, r *http.Request) ([]triage.Record, bool) {
	records, err := a.triage.Load(r.Context())
	if err != nil {
		if errors.Is(err, triage.ErrNotAvailable) {
			http.Error(w, `{"error":"triage data not yet available"}`, http.StatusServiceUnavailable)
			return nil, false
		}
		a.logger.Error(r.Context(), err, "failed to load triage set")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return records, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
