package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/linnemanlabs/sentinel/internal/alert"
	"github.com/linnemanlabs/sentinel/internal/event"
)

const earthRadiusKm = 6371.0

// detectImpossibleTravel flags consecutive successful logins by the
// same actor whose implied speed exceeds the configured threshold.
// Zero or negative elapsed time with a nonzero distance is treated as
// infinite speed and always critical; it never divides.
func (e *Engine) detectImpossibleTravel(events []event.AuthEvent) []alert.Alert {
	byActor := make(map[string][]event.AuthEvent)
	var actors []string
	for _, ev := range events {
		if !ev.Success {
			continue
		}
		if _, seen := byActor[ev.Actor]; !seen {
			actors = append(actors, ev.Actor)
		}
		byActor[ev.Actor] = append(byActor[ev.Actor], ev)
	}
	sort.Strings(actors)

	var alerts []alert.Alert
	for _, actor := range actors {
		logins := byActor[actor]
		sort.Slice(logins, func(i, j int) bool {
			return logins[i].Timestamp.Before(logins[j].Timestamp)
		})

		for i := 1; i < len(logins); i++ {
			prev, curr := logins[i-1], logins[i]
			distKm := haversineKm(prev.Lat, prev.Lon, curr.Lat, curr.Lon)
			hours := curr.Timestamp.Sub(prev.Timestamp).Hours()

			evidence := map[string]any{
				"actor":         actor,
				"previous_ip":   prev.SourceIP,
				"previous_time": prev.Timestamp,
				"current_ip":    curr.SourceIP,
				"current_time":  curr.Timestamp,
				"distance_km":   math.Round(distKm*100) / 100,
			}

			var severity alert.Severity
			var desc string
			switch {
			case hours <= 0:
				if distKm == 0 {
					continue
				}
				severity = alert.SeverityCritical
				evidence["instantaneous"] = true
				desc = fmt.Sprintf("Actor %s logged in %.0f km apart with no elapsed time", actor, distKm)
			default:
				speed := distKm / hours
				if speed <= e.cfg.TravelSpeedHigh {
					continue
				}
				severity = alert.SeverityHigh
				if speed > e.cfg.TravelSpeedCritical {
					severity = alert.SeverityCritical
				}
				evidence["speed_kmh"] = math.Round(speed*100) / 100
				desc = fmt.Sprintf("Actor %s traveled %.0f km in %.1f hours (~%.0f km/h)", actor, distKm, hours, speed)
			}

			alerts = append(alerts, alert.Alert{
				ID:          alert.NewID(alert.CategoryImpossibleTravel, actor, curr.Timestamp),
				Category:    alert.CategoryImpossibleTravel,
				Severity:    severity,
				Subject:     actor,
				Description: desc,
				Evidence:    evidence,
				CreatedAt:   e.cfg.Now().UTC(),
			})
		}
	}
	return alerts
}

// haversineKm computes the great-circle distance between two
// coordinates in kilometers.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const deg = math.Pi / 180
	dLat := (lat2 - lat1) * deg
	dLon := (lon2 - lon1) * deg

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
