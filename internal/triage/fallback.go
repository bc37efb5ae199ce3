package triage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linnemanlabs/sentinel/internal/alert"
)

// Category-keyed templates used when the reasoning call fails or is
// disabled. Output depends only on the alert, so fallback runs are
// reproducible.

var fallbackLead = map[alert.Category]string{
	alert.CategoryImpossibleTravel: "Authentication from two locations that cannot be reached in the elapsed time. Likely credential compromise or shared credentials.",
	alert.CategoryPatchDrift:       "Host has exceeded its patching window and is exposed to known vulnerabilities fixed by pending updates.",
	alert.CategoryOpenPort:         "Traffic permitted to a destination port outside the approved service whitelist.",
	alert.CategoryCorrelation:      "Correlated event stream matched a known threat pattern.",
}

var defaultRemediation = map[alert.Category][]string{
	alert.CategoryImpossibleTravel: {
		"Disable the account pending verification with the user",
		"Force credential rotation and review MFA enrollment",
		"Correlate with VPN and badge records for the same window",
	},
	alert.CategoryPatchDrift: {
		"Schedule an emergency patching window with operations",
		"Verify compensating controls while the host remains unpatched",
		"Isolate the host if exploitable services are exposed",
	},
	alert.CategoryOpenPort: {
		"Review firewall rules permitting this destination port",
		"Confirm a business justification with the asset owner",
		"Block or restrict the port if no justification exists",
	},
	alert.CategoryCorrelation: {
		"Isolate the affected account or host pending investigation",
		"Review surrounding activity in the source log platform",
		"Escalate to incident response if the pattern persists",
	},
}

// fallbackNarrative renders the deterministic analysis for an alert.
func fallbackNarrative(a alert.Alert) string {
	var b strings.Builder
	lead, ok := fallbackLead[a.Category]
	if !ok {
		lead = "Alert requires analyst review."
	}
	b.WriteString(lead)
	b.WriteString("\n\n")
	b.WriteString(a.Description)

	if len(a.Evidence) > 0 {
		b.WriteString("\n\nEvidence:")
		keys := make([]string, 0, len(a.Evidence))
		for k := range a.Evidence {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s: %v", k, a.Evidence[k])
		}
	}
	return b.String()
}

// remediationFor returns the template steps for a category.
func remediationFor(c alert.Category) []string {
	if steps, ok := defaultRemediation[c]; ok {
		out := make([]string, len(steps))
		copy(out, steps)
		return out
	}
	return []string{"Review the alert evidence and escalate if confirmed"}
}
