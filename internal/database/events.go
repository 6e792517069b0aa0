// Package database provides the event store operations.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no event matches the requested identifier.
var ErrNotFound = errors.New("event not found")

// Event represents a stored alert event. Nullable columns map to
// pointer fields; JSON field names match the dashboard API contract.
type Event struct {
	ID             string          `json:"id"`
	DedupeKey      string          `json:"dedupeKey"`
	OccurredAt     time.Time       `json:"occurredAt"`
	AlertType      string          `json:"alertType"`
	Severity       *string         `json:"severity"`
	OrganizationID *string         `json:"organizationId"`
	NetworkID      *string         `json:"networkId"`
	DeviceSerial   *string         `json:"deviceSerial"`
	DeviceMac      *string         `json:"deviceMac"`
	DeviceName     *string         `json:"deviceName"`
	ClientMac      *string         `json:"clientMac"`
	ImageURL       *string         `json:"imageUrl"`
	Details        *string         `json:"details"`
	Raw            json.RawMessage `json:"raw"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// NewEvent holds the normalized fields written by an upsert.
type NewEvent struct {
	DedupeKey      string
	OccurredAt     time.Time
	AlertType      string
	Severity       *string
	OrganizationID *string
	NetworkID      *string
	DeviceSerial   *string
	DeviceMac      *string
	DeviceName     *string
	ClientMac      *string
	ImageURL       *string
	Details        *string
	Raw            json.RawMessage
}

// Filter describes the conjunctive event query filters. Zero values
// mean "not filtered". Limit is clamped to [1,200], defaulting to 50
// when unset.
type Filter struct {
	AlertTypes   []string
	Severities   []string
	NetworkID    string
	DeviceSerial string
	Since        *time.Time
	Until        *time.Time
	Query        string
	Limit        int
	Cursor       string
}

// MaxLimit caps the page size of a single event query.
const MaxLimit = 200

// DefaultLimit is the page size used when the caller does not supply one.
const DefaultLimit = 50

// EffectiveLimit returns the clamped page size. An unset limit means
// the default; anything else is clamped into [1, MaxLimit].
func (f *Filter) EffectiveLimit() int {
	if f.Limit == 0 {
		return DefaultLimit
	}
	if f.Limit < 1 {
		return 1
	}
	if f.Limit > MaxLimit {
		return MaxLimit
	}
	return f.Limit
}

// EventPage is one page of query results plus the cursor for the next page.
type EventPage struct {
	Items      []*Event
	NextCursor *string
}

const eventColumns = `id, dedupe_key, occurred_at, alert_type, severity, organization_id, network_id, device_serial, device_mac, device_name, client_mac, image_url, details, raw, created_at, updated_at`

// Upsert inserts an event keyed by its dedupe key, or overwrites the
// mutable fields of the existing row (last write wins). The identifier
// and creation time of an existing row are preserved. Returns the
// stored, post-upsert row.
func (db *DB) Upsert(ctx context.Context, ev *NewEvent) (*Event, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			occurred_at = excluded.occurred_at,
			alert_type = excluded.alert_type,
			severity = excluded.severity,
			organization_id = excluded.organization_id,
			network_id = excluded.network_id,
			device_serial = excluded.device_serial,
			device_mac = excluded.device_mac,
			device_name = excluded.device_name,
			client_mac = excluded.client_mac,
			image_url = excluded.image_url,
			details = excluded.details,
			raw = excluded.raw,
			updated_at = excluded.updated_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		uuid.NewString(),
		ev.DedupeKey,
		ev.OccurredAt,
		ev.AlertType,
		ev.Severity,
		ev.OrganizationID,
		ev.NetworkID,
		ev.DeviceSerial,
		ev.DeviceMac,
		ev.DeviceName,
		ev.ClientMac,
		ev.ImageURL,
		ev.Details,
		rawArg(ev.Raw),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert event: %w", err)
	}

	stored, err := db.getBy(ctx, "dedupe_key", ev.DedupeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read back upserted event: %w", err)
	}
	return stored, nil
}

// Get retrieves an event by its identifier. Returns ErrNotFound if it
// does not exist.
func (db *DB) Get(ctx context.Context, id string) (*Event, error) {
	return db.getBy(ctx, "id", id)
}

func (db *DB) getBy(ctx context.Context, column, value string) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + column + ` = $1`
	ev, err := scanEvent(db.conn.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// Query returns one page of events matching the filter, ordered by
// occurred_at descending with id descending as tiebreaker. Cursor
// pagination fetches limit+1 rows strictly after the cursor row in
// sort order; when a full page plus one is returned, the extra row's
// identifier becomes the next cursor.
func (db *DB) Query(ctx context.Context, f *Filter) (*EventPage, error) {
	where, args := buildWhere(f)
	limit := f.EffectiveLimit()

	if f.Cursor != "" {
		args = append(args, f.Cursor)
		cond := fmt.Sprintf("(occurred_at, id) < (SELECT occurred_at, id FROM events WHERE id = $%d)", len(args))
		where = append(where, cond)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	items := []*Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	page := &EventPage{Items: items}
	if len(items) > limit {
		next := items[limit]
		page.Items = items[:limit]
		page.NextCursor = &next.ID
	}
	return page, nil
}

// Count returns the total number of events matching the filter,
// ignoring pagination.
func (db *DB) Count(ctx context.Context, f *Filter) (int, error) {
	where, args := buildWhere(f)
	query := `SELECT COUNT(*) FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return total, nil
}

// DistinctAlertTypes lists up to 1000 distinct alert type values in
// alphabetical order.
func (db *DB) DistinctAlertTypes(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT alert_type FROM events
		WHERE alert_type IS NOT NULL AND alert_type != ''
		ORDER BY alert_type ASC
		LIMIT 1000
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan alert type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// buildWhere translates a Filter into WHERE conditions and their args.
// Free-text search is an OR of substring matches over the text-bearing
// columns; everything else is AND-ed.
func buildWhere(f *Filter) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	placeholder := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.AlertTypes) > 0 {
		ps := make([]string, len(f.AlertTypes))
		for i, v := range f.AlertTypes {
			ps[i] = placeholder(v)
		}
		where = append(where, "alert_type IN ("+strings.Join(ps, ", ")+")")
	}
	if len(f.Severities) > 0 {
		ps := make([]string, len(f.Severities))
		for i, v := range f.Severities {
			ps[i] = placeholder(v)
		}
		where = append(where, "severity IN ("+strings.Join(ps, ", ")+")")
	}
	if f.NetworkID != "" {
		where = append(where, "network_id = "+placeholder(f.NetworkID))
	}
	if f.DeviceSerial != "" {
		where = append(where, "device_serial = "+placeholder(f.DeviceSerial))
	}
	if f.Since != nil {
		where = append(where, "occurred_at >= "+placeholder(*f.Since))
	}
	if f.Until != nil {
		where = append(where, "occurred_at <= "+placeholder(*f.Until))
	}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		cols := []string{"details", "device_name", "device_serial", "network_id", "alert_type"}
		ors := make([]string, len(cols))
		for i, col := range cols {
			ors[i] = col + " LIKE " + placeholder(pattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	return where, args
}

// scanner abstracts *sql.Row and *sql.Rows for scanEvent.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*Event, error) {
	var ev Event
	var severity, orgID, netID, serial, mac, name, clientMac, imageURL, details sql.NullString
	var raw []byte
	if err := s.Scan(
		&ev.ID,
		&ev.DedupeKey,
		&ev.OccurredAt,
		&ev.AlertType,
		&severity,
		&orgID,
		&netID,
		&serial,
		&mac,
		&name,
		&clientMac,
		&imageURL,
		&details,
		&raw,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ev.Severity = nullableString(severity)
	ev.OrganizationID = nullableString(orgID)
	ev.NetworkID = nullableString(netID)
	ev.DeviceSerial = nullableString(serial)
	ev.DeviceMac = nullableString(mac)
	ev.DeviceName = nullableString(name)
	ev.ClientMac = nullableString(clientMac)
	ev.ImageURL = nullableString(imageURL)
	ev.Details = nullableString(details)
	if len(raw) > 0 {
		ev.Raw = json.RawMessage(raw)
	}
	return &ev, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// rawArg passes the raw payload as a string so the Postgres driver
// binds it as text (implicitly cast to jsonb) rather than bytea.
func rawArg(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
