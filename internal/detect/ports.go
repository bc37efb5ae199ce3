package detect

import (
	"fmt"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/event"
)

// detectOpenPorts flags allowed flows to ports outside the whitelist.
// A known-dangerous subset (clear-text admin protocols) maps to high,
// the rest to medium. Alerts are deduplicated on (destination host,
// port): repeated flows within one run add to the flow count on the
// first alert instead of emitting new ones.
func (e *Engine) detectOpenPorts(flows []event.FirewallFlow) []alert.Alert {
	type key struct {
		host string
		port int
	}

	var order []key
	drafts := make(map[key]*alert.Alert)

	for _, f := range flows {
		if !f.Allowed || e.cfg.AllowedPorts[f.DstPort] {
			continue
		}

		k := key{host: f.DstIP, port: f.DstPort}
		if a, seen := drafts[k]; seen {
			a.Evidence["flow_count"] = a.Evidence["flow_count"].(int) + 1
			continue
		}

		severity := alert.SeverityMedium
		if e.cfg.DangerousPorts[f.DstPort] {
			severity = alert.SeverityHigh
		}

		subject := fmt.Sprintf("%s:%d", f.DstIP, f.DstPort)
		drafts[k] = &alert.Alert{
			ID:          alert.NewID(alert.CategoryOpenPort, subject, f.Timestamp),
			Category:    alert.CategoryOpenPort,
			Severity:    severity,
			Subject:     subject,
			Description: fmt.Sprintf("Traffic allowed to unauthorized port %d on %s", f.DstPort, f.DstIP),
			Evidence: map[string]any{
				"source_ip":  f.SrcIP,
				"dst_ip":     f.DstIP,
				"dst_port":   f.DstPort,
				"protocol":   f.Protocol,
				"first_seen": f.Timestamp,
				"flow_count": 1,
			},
			CreatedAt: e.cfg.Now().UTC(),
		}
		order = append(order, k)
	}

	alerts := make([]alert.Alert, 0, len(order))
	for _, k := range order {
		alerts = append(alerts, *drafts[k])
	}
	return alerts
}
