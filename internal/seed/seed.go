// Package seed holds the fixed sample webhook payloads inserted by the
// admin seed endpoint. The samples run through the normal ingestion
// path, so reseeding is idempotent via their alertId dedupe keys.
package seed

import "time"

// SamplePayloads returns the sample vendor payloads relative to now.
// The shared secret is embedded the way a real delivery would carry it.
func SamplePayloads(now time.Time, sharedSecret string) []map[string]interface{} {
	return []map[string]interface{}{
		{
			"alertType":      "MV Motion Recap",
			"severity":       "Info",
			"organizationId": "org_1",
			"networkId":      "N_123",
			"deviceSerial":   "Q2GV-ABCD-1234",
			"deviceName":     "Lobby Cam",
			"occurredAt":     now.Add(-time.Minute).UTC().Format(time.RFC3339),
			"sentAt":         now.UTC().Format(time.RFC3339),
			"sharedSecret":   sharedSecret,
			"imageUrl":       "https://placehold.co/160x90/png",
			"text":           "Motion recap available",
			"alertId":        "sample-1",
		},
		{
			"alertType":      "MX Offline",
			"severity":       "Critical",
			"organizationId": "org_1",
			"networkId":      "N_123",
			"deviceSerial":   "Q2GV-WXYZ-9999",
			"deviceName":     "Edge Security",
			"occurredAt":     now.Add(-5 * time.Minute).UTC().Format(time.RFC3339),
			"sentAt":         now.UTC().Format(time.RFC3339),
			"sharedSecret":   sharedSecret,
			"text":           "Security appliance went offline",
			"alertId":        "sample-2",
		},
	}
}
