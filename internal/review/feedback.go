package review

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/feedback"
	"github.com/linnemanlabs/sentinel/internal/triage"
)

// feedbackRequest is the submission payload. Category is derived from
// the triage record server-side; clients only name the alert.
type feedbackRequest struct {
	AlertID string `json:"alert_id"`
	Action  string `json:"action"`
	Reason  string `json:"reason"`
}

func (a *API) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := a.feedback.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list feedback")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (a *API) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sentinel.alert.id", req.AlertID),
		attribute.String("sentinel.feedback.action", req.Action),
	)

	// Feedback must reference an alert in the current triage set, so the
	// set's availability gates submission too.
	records, ok := a.loadTriage(w, r)
	if !ok {
		return
	}
	var rec *alert.Alert
	for i := range records {
		if records[i].Alert.ID == req.AlertID {
			rec = &records[i].Alert
			break
		}
	}
	if rec == nil {
		http.Error(w, `{"error":"unknown alert id"}`, http.StatusNotFound)
		return
	}

	entry := &feedback.Entry{
		AlertID:  req.AlertID,
		Category: rec.Category,
		Action:   feedback.Action(req.Action),
		Reason:   req.Reason,
	}
	if err := a.feedback.Append(r.Context(), entry); err != nil {
		if msg, ok := validationMessage(err); ok {
			http.Error(w, `{"error":"`+msg+`"}`, http.StatusBadRequest)
			return
		}
		a.logger.Error(r.Context(), err, "failed to persist feedback", "alert_id", req.AlertID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.logger.Info(r.Context(), "feedback recorded",
		"feedback_id", entry.ID,
		"alert_id", entry.AlertID,
		"category", string(entry.Category),
		"action", string(entry.Action),
	)
	writeJSON(w, http.StatusCreated, entry)
}

// validationMessage maps the store's validation errors onto stable
// client-facing strings. Unknown errors are not validation failures.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, feedback.ErrNoAlertID):
		return "alert_id is required", true
	case errors.Is(err, feedback.ErrNoCategory):
		return "category is required", true
	case errors.Is(err, feedback.ErrBadAction):
		return "action must be approved or rejected", true
	case errors.Is(err, feedback.ErrNoReason):
		return "reason is required", true
	}
	return "", false
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	entries, err := a.feedback.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list feedback")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	resp := statsResponse{
		BySeverity: map[string]int{},
		Feedback:   map[string]categoryStats{},
	}
	for cat, s := range feedback.Aggregate(entries) {
		resp.FeedbackTotal += s.Total()
		resp.Feedback[string(cat)] = categoryStats{
			Approved:      s.Approved,
			Rejected:      s.Rejected,
			ApprovalRatio: s.ApprovalRatio(),
		}
	}

	// Stats stay useful before the first triage run; the triage block is
	// just zeroed out.
	records, err := a.triage.Load(r.Context())
	switch {
	case errors.Is(err, triage.ErrNotAvailable):
	case err != nil:
		a.logger.Error(r.Context(), err, "failed to load triage set")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	default:
		resp.TriageAvailable = true
		resp.TriageRecords = len(records)
		for i := range records {
			resp.BySeverity[string(records[i].Alert.Severity)]++
			if records[i].Fallback {
				resp.Fallbacks++
			}
			if records[i].FeedbackAdjusted {
				resp.Adjusted++
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	TriageAvailable bool                     `json:"triage_available"`
	TriageRecords   int                      `json:"triage_records"`
	Fallbacks       int                      `json:"fallbacks"`
	Adjusted        int                      `json:"feedback_adjusted"`
	BySeverity      map[string]int           `json:"by_severity"`
	FeedbackTotal   int                      `json:"feedback_total"`
	Feedback        map[string]categoryStats `json:"feedback"`
}

type categoryStats struct {
	Approved      int     `json:"approved"`
	Rejected      int     `json:"rejected"`
	ApprovalRatio float64 `json:"approval_ratio"`
}
