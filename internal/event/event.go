// Package event defines the read-only input datasets the detection
// engine scans: authentication events, host inventory, firewall flows,
// and SIEM correlation events. Events are loaded fresh each run and
// never mutated.
package event

import "time"

// Criticality is the inventory tier assigned to a host.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Elevated reports whether the tier escalates patch-drift severity.
func (c Criticality) Elevated() bool {
	return c == CriticalityHigh || c == CriticalityCritical
}

// AuthEvent is one login attempt with its source geolocation.
type AuthEvent struct {
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	SourceIP  string    `json:"source_ip"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Success   bool      `json:"success"`
}

// Host is one inventory row.
type Host struct {
	Name        string      `json:"host"`
	IP          string      `json:"ip"`
	OS          string      `json:"os"`
	LastPatch   time.Time   `json:"last_patch_date"`
	Criticality Criticality `json:"criticality"`
}

// FirewallFlow is one firewall log line.
type FirewallFlow struct {
	Timestamp time.Time `json:"timestamp"`
	SrcIP     string    `json:"src_ip"`
	DstIP     string    `json:"dst_ip"`
	DstPort   int       `json:"dst_port"`
	Protocol  string    `json:"protocol"`
	Allowed   bool      `json:"allowed"`
}

// CorrelationEvent is a SIEM-style correlated observation tagged with a
// threat category. Detail is free-form text from the upstream system.
type CorrelationEvent struct {
	EventID   string    `json:"event_id"`
	Category  string    `json:"category"`
	Actor     string    `json:"actor,omitempty"`
	Host      string    `json:"host,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}
