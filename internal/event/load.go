package event

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Loaders return the parsed rows plus the number of malformed rows that
// were skipped. A missing or unreadable file is an error; the callers
// treat that as fatal for the run. A bad row is not.

type csvTable struct {
	cols map[string]int
	rows [][]string
}

func readCSV(path string, required ...string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row-level validation happens per loader
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}

	t := &csvTable{cols: make(map[string]int, len(header))}
	for i, name := range header {
		t.cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range required {
		if _, ok := t.cols[name]; !ok {
			return nil, fmt.Errorf("dataset %s is missing required column %q", path, name)
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rows %s: %w", path, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *csvTable) field(row []string, name string) (string, bool) {
	i, ok := t.cols[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

// LoadAuthEvents reads auth_events.csv: actor, timestamp, source_ip,
// lat, lon, success.
func LoadAuthEvents(path string) ([]AuthEvent, int, error) {
	t, err := readCSV(path, "actor", "timestamp", "lat", "lon", "success")
	if err != nil {
		return nil, 0, err
	}

	var out []AuthEvent
	var skipped int
	for _, row := range t.rows {
		actor, _ := t.field(row, "actor")
		tsRaw, _ := t.field(row, "timestamp")
		latRaw, _ := t.field(row, "lat")
		lonRaw, _ := t.field(row, "lon")
		okRaw, _ := t.field(row, "success")
		srcIP, _ := t.field(row, "source_ip")

		ts, err := time.Parse(time.RFC3339, tsRaw)
		if err != nil || actor == "" {
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}

		out = append(out, AuthEvent{
			Actor:     actor,
			Timestamp: ts,
			SourceIP:  srcIP,
			Lat:       lat,
			Lon:       lon,
			Success:   strings.EqualFold(okRaw, "true"),
		})
	}
	return out, skipped, nil
}

// LoadHosts reads host_inventory.csv: host, ip, os, last_patch_date,
// criticality. The patch date may be a bare date or RFC 3339.
func LoadHosts(path string) ([]Host, int, error) {
	t, err := readCSV(path, "host", "last_patch_date", "criticality")
	if err != nil {
		return nil, 0, err
	}

	var out []Host
	var skipped int
	for _, row := range t.rows {
		name, _ := t.field(row, "host")
		patchRaw, _ := t.field(row, "last_patch_date")
		tierRaw, _ := t.field(row, "criticality")
		ip, _ := t.field(row, "ip")
		osName, _ := t.field(row, "os")

		patch, err := parseDate(patchRaw)
		if err != nil || name == "" {
			skipped++
			continue
		}
		tier := Criticality(strings.ToLower(tierRaw))
		switch tier {
		case CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical:
		default:
			skipped++
			continue
		}

		out = append(out, Host{
			Name:        name,
			IP:          ip,
			OS:          osName,
			LastPatch:   patch,
			Criticality: tier,
		})
	}
	return out, skipped, nil
}

// LoadFirewallFlows reads firewall_logs.csv: timestamp, src_ip, dst_ip,
// dst_port, protocol, action.
func LoadFirewallFlows(path string) ([]FirewallFlow, int, error) {
	t, err := readCSV(path, "timestamp", "dst_ip", "dst_port", "action")
	if err != nil {
		return nil, 0, err
	}

	var out []FirewallFlow
	var skipped int
	for _, row := range t.rows {
		tsRaw, _ := t.field(row, "timestamp")
		dstIP, _ := t.field(row, "dst_ip")
		portRaw, _ := t.field(row, "dst_port")
		action, _ := t.field(row, "action")
		srcIP, _ := t.field(row, "src_ip")
		proto, _ := t.field(row, "protocol")

		ts, err := time.Parse(time.RFC3339, tsRaw)
		if err != nil || dstIP == "" {
			skipped++
			continue
		}
		port, err := strconv.Atoi(portRaw)
		if err != nil || port < 0 || port > 65535 {
			skipped++
			continue
		}

		out = append(out, FirewallFlow{
			Timestamp: ts,
			SrcIP:     srcIP,
			DstIP:     dstIP,
			DstPort:   port,
			Protocol:  proto,
			Allowed:   strings.EqualFold(action, "allowed") || strings.EqualFold(action, "allow"),
		})
	}
	return out, skipped, nil
}

// LoadCorrelationEvents reads correlation_events.json, a JSON array of
// CorrelationEvent objects. Entries without a category or timestamp are
// skipped.
func LoadCorrelationEvents(path string) ([]CorrelationEvent, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset: %w", err)
	}

	var all []CorrelationEvent
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, 0, fmt.Errorf("parse dataset %s: %w", path, err)
	}

	out := make([]CorrelationEvent, 0, len(all))
	var skipped int
	for _, ev := range all {
		if ev.Category == "" || ev.Timestamp.IsZero() {
			skipped++
			continue
		}
		out = append(out, ev)
	}
	return out, skipped, nil
}

func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}
