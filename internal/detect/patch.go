package detect

import (
	"fmt"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/event"
)

// detectPatchDrift flags hosts whose last patch is older than the
// configured windows. Severity is monotonic in days-since-patch, and
// high/critical inventory tiers escalate one level, capped at critical,
// so escalation never lowers the unescalated mapping.
func (e *Engine) detectPatchDrift(hosts []event.Host) []alert.Alert {
	now := e.cfg.Now().UTC()

	var alerts []alert.Alert
	for _, h := range hosts {
		days := int(now.Sub(h.LastPatch).Hours() / 24)
		if days < e.cfg.PatchHighDays {
			continue
		}

		severity := alert.SeverityHigh
		if days >= e.cfg.PatchCriticalDays {
			severity = alert.SeverityCritical
		}
		if h.Criticality.Elevated() {
			severity = severity.Escalate()
		}

		alerts = append(alerts, alert.Alert{
			ID:          alert.NewID(alert.CategoryPatchDrift, h.Name, h.LastPatch),
			Category:    alert.CategoryPatchDrift,
			Severity:    severity,
			Subject:     h.Name,
			Description: fmt.Sprintf("Host %s has not been patched in %d days", h.Name, days),
			Evidence: map[string]any{
				"host":             h.Name,
				"ip":               h.IP,
				"os":               h.OS,
				"last_patch_date":  h.LastPatch,
				"days_since_patch": days,
				"criticality":      string(h.Criticality),
			},
			CreatedAt: now,
		})
	}
	return alerts
}
