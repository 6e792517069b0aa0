// Package normalize maps arbitrary vendor webhook payloads onto the
// fixed event record, computing the dedupe key and a human-readable
// summary. Every field access defaults to absent rather than failing:
// a payload can never be "wrong", only empty.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/merakimiles/alerts/internal/database"
)

// detailsSeparator joins the parts of the details summary.
const detailsSeparator = " • "

// DedupeKey derives the unique key identifying one logical alert
// across repeated deliveries. A string alertId (or id) is used
// verbatim, so vendor-identified alerts dedupe on identity regardless
// of byte differences. Otherwise the key is a SHA-256 over the raw
// request body and the payload's sentAt/occurredAt value, collapsing
// byte-identical retries to one key.
func DedupeKey(payload map[string]interface{}, rawBody []byte) string {
	id := payload["alertId"]
	if !truthy(id) {
		id = payload["id"]
	}
	if s, ok := id.(string); ok && s != "" {
		return s
	}

	sentAt := payload["sentAt"]
	if !truthy(sentAt) {
		sentAt = payload["occurredAt"]
	}
	sum := sha256.Sum256([]byte(string(rawBody) + "|" + scalarString(sentAt)))
	return hex.EncodeToString(sum[:])
}

// MapPayload produces the normalized event fields for one payload.
// occurredAt falls back through occurredAt, alertData.occurredAt and
// sentAt before defaulting to the receipt time; unparseable values are
// treated as absent.
func MapPayload(payload map[string]interface{}, dedupeKey string, receivedAt time.Time) *database.NewEvent {
	alertData, _ := payload["alertData"].(map[string]interface{})

	occurredAt := parseTime(payload["occurredAt"])
	if occurredAt == nil && alertData != nil {
		occurredAt = parseTime(alertData["occurredAt"])
	}
	if occurredAt == nil {
		occurredAt = parseTime(payload["sentAt"])
	}
	if occurredAt == nil {
		t := receivedAt
		occurredAt = &t
	}

	imageURL := stringField(payload["imageUrl"])
	if imageURL == nil && alertData != nil {
		imageURL = stringField(alertData["imageUrl"])
	}
	if imageURL == nil {
		imageURL = stringField(payload["motionRecapImage"])
	}
	if imageURL == nil {
		imageURL = stringField(payload["recapImageUrl"])
	}

	alertType := "unknown"
	if s := stringField(payload["alertType"]); s != nil {
		alertType = *s
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		// A payload that came in as JSON always marshals back out.
		raw = nil
	}

	return &database.NewEvent{
		DedupeKey:      dedupeKey,
		OccurredAt:     occurredAt.UTC(),
		AlertType:      alertType,
		Severity:       stringField(payload["severity"]),
		OrganizationID: stringField(payload["organizationId"]),
		NetworkID:      stringField(payload["networkId"]),
		DeviceSerial:   stringField(payload["deviceSerial"]),
		DeviceMac:      stringField(payload["deviceMac"]),
		DeviceName:     stringField(payload["deviceName"]),
		ClientMac:      stringField(payload["clientMac"]),
		ImageURL:       imageURL,
		Details:        summarizeDetails(payload),
		Raw:            raw,
	}
}

// summarizeDetails joins alert type, device identifier, network
// identifier and free text into one line, omitting absent parts.
// Returns nil when nothing is available.
func summarizeDetails(payload map[string]interface{}) *string {
	alertType := "alert"
	if s := stringField(payload["alertType"]); s != nil {
		alertType = *s
	}

	device := firstString(payload, "deviceName", "deviceSerial", "deviceMac")
	network := firstString(payload, "networkName", "networkId")
	text := firstString(payload, "text", "description", "summary")

	var parts []string
	for _, p := range []*string{&alertType, device, network, text} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	summary := strings.Join(parts, detailsSeparator)
	if summary == "" {
		return nil
	}
	return &summary
}

// firstString returns the first truthy field among the named keys,
// coerced to string.
func firstString(payload map[string]interface{}, keys ...string) *string {
	for _, key := range keys {
		if s := stringField(payload[key]); s != nil {
			return s
		}
	}
	return nil
}

// stringField coerces a truthy scalar to a string, nil otherwise.
func stringField(v interface{}) *string {
	if !truthy(v) {
		return nil
	}
	s := scalarString(v)
	if s == "" {
		return nil
	}
	return &s
}

// scalarString renders a JSON scalar the way the dashboard expects:
// numbers without a trailing ".0" when integral, empty string for nil.
func scalarString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// truthy is the loose presence check used throughout normalization:
// nil, empty string, zero and false are all absent.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}

// timeLayouts are tried in order when parsing payload timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads a timestamp from a payload value. Strings are tried
// against common layouts, numbers are taken as millisecond epochs.
// Anything unparseable is treated as absent.
func parseTime(v interface{}) *time.Time {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return &t
			}
		}
		return nil
	case float64:
		if val == 0 {
			return nil
		}
		t := time.UnixMilli(int64(val)).UTC()
		return &t
	default:
		return nil
	}
}
