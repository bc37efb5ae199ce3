package detect

import (
	"fmt"
	"sort"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/event"
)

// Known threat categories on correlation events and their fixed
// severities. Failed logins are handled separately by windowing.
var threatSeverity = map[string]alert.Severity{
	"credential_brute_force":  alert.SeverityHigh,
	"privilege_escalation":    alert.SeverityCritical,
	"attacker_tooling":        alert.SeverityHigh,
	"large_outbound_transfer": alert.SeverityHigh,
	"backup_deletion":         alert.SeverityCritical,
}

const failedLoginCategory = "failed_login"

// detectCorrelation maps known threat categories to alerts and
// aggregates repeated failed logins into one alert per actor and
// window. Events with unrecognized categories are skipped.
func (e *Engine) detectCorrelation(events []event.CorrelationEvent) []alert.Alert {
	var alerts []alert.Alert
	failed := make(map[string][]event.CorrelationEvent)
	var actors []string

	for _, ev := range events {
		if ev.Category == failedLoginCategory {
			if _, seen := failed[ev.Actor]; !seen {
				actors = append(actors, ev.Actor)
			}
			failed[ev.Actor] = append(failed[ev.Actor], ev)
			continue
		}

		severity, known := threatSeverity[ev.Category]
		if !known {
			continue
		}

		subject := ev.Actor
		if subject == "" {
			subject = ev.Host
		}
		alerts = append(alerts, alert.Alert{
			ID:          alert.NewID(alert.CategoryCorrelation, ev.Category+"/"+subject, ev.Timestamp),
			Category:    alert.CategoryCorrelation,
			Severity:    severity,
			Subject:     subject,
			Description: fmt.Sprintf("Correlated %s event involving %s", ev.Category, subject),
			Evidence: map[string]any{
				"event_id":  ev.EventID,
				"threat":    ev.Category,
				"actor":     ev.Actor,
				"host":      ev.Host,
				"timestamp": ev.Timestamp,
				"detail":    ev.Detail,
			},
			CreatedAt: e.cfg.Now().UTC(),
		})
	}

	sort.Strings(actors)
	for _, actor := range actors {
		alerts = append(alerts, e.windowFailedLogins(actor, failed[actor])...)
	}
	return alerts
}

// windowFailedLogins groups an actor's failed logins into windows
// anchored at the first event of each window. A window that reaches the
// configured count emits a single alert; events past the window start a
// new one.
func (e *Engine) windowFailedLogins(actor string, events []event.CorrelationEvent) []alert.Alert {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	var alerts []alert.Alert
	emit := func(window []event.CorrelationEvent) {
		if len(window) < e.cfg.FailedLoginCount {
			return
		}
		start := window[0].Timestamp
		end := window[len(window)-1].Timestamp
		alerts = append(alerts, alert.Alert{
			ID:          alert.NewID(alert.CategoryCorrelation, failedLoginCategory+"/"+actor, start),
			Category:    alert.CategoryCorrelation,
			Severity:    alert.SeverityHigh,
			Subject:     actor,
			Description: fmt.Sprintf("%d failed logins for %s within %s", len(window), actor, e.cfg.FailedLoginWindow),
			Evidence: map[string]any{
				"actor":        actor,
				"count":        len(window),
				"window_start": start,
				"window_end":   end,
			},
			CreatedAt: e.cfg.Now().UTC(),
		})
	}

	var window []event.CorrelationEvent
	for _, ev := range events {
		if len(window) > 0 && ev.Timestamp.Sub(window[0].Timestamp) > e.cfg.FailedLoginWindow {
			emit(window)
			window = window[:0]
		}
		window = append(window, ev)
	}
	emit(window)
	return alerts
}
