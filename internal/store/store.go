// Package store provides SQLite persistence for fleetmon.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fleetmon/internal/model"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database for fleetmon data persistence. It is the
// sole writer of the systems, metrics, and alerts tables.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertSystem inserts or updates a system record. last_seen only ever
// advances; an out-of-order ingestion with an older timestamp updates the
// mutable fields but never rolls liveness back.
func (s *Store) UpsertSystem(ctx context.Context, sys model.SystemInfo, seenAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO systems (id, name, hostname, version, client_name, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hostname = excluded.hostname,
			version = excluded.version,
			client_name = excluded.client_name,
			last_seen = MAX(last_seen, excluded.last_seen)`,
		sys.ID, sys.Name, nullString(sys.Hostname), nullString(sys.Version),
		nullString(sys.ClientName), seenAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting system %s: %w", sys.ID, err)
	}
	return nil
}

// GetSystem returns one system by ID, or sql.ErrNoRows.
func (s *Store) GetSystem(ctx context.Context, id string) (model.System, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, hostname, version, client_name, last_seen
		FROM systems WHERE id = ?`, id)
	return scanSystem(row)
}

// ListSystems returns all known systems ordered by name.
func (s *Store) ListSystems(ctx context.Context) ([]model.System, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, hostname, version, client_name, last_seen
		FROM systems ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying systems: %w", err)
	}
	defer rows.Close()

	var systems []model.System
	for rows.Next() {
		sys, err := scanSystem(rows)
		if err != nil {
			return nil, err
		}
		systems = append(systems, sys)
	}
	return systems, rows.Err()
}

// InsertMetric appends one metric event. Events are immutable once stored.
func (s *Store) InsertMetric(ctx context.Context, ev model.MetricEvent) error {
	var meta *string
	if ev.Metadata != nil {
		data, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metric metadata: %w", err)
		}
		str := string(data)
		meta = &str
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (system_id, ts, metric_type, metric_name, value, unit, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.SystemID, ev.Timestamp.Unix(), ev.MetricType, ev.MetricName,
		ev.Value, nullString(ev.Unit), meta,
	)
	if err != nil {
		return fmt.Errorf("inserting metric %s/%s: %w", ev.SystemID, ev.MetricName, err)
	}
	return nil
}

// QueryEvents returns metric events since the given time, ordered by
// (timestamp, id) ascending. That ordering is what lets latest-value-wins
// resolution break timestamp ties in favor of the later-ingested row.
// Empty systemID means all systems; empty metricTypes means all types.
func (s *Store) QueryEvents(ctx context.Context, systemID string, metricTypes []string, since time.Time) ([]model.MetricEvent, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, system_id, ts, metric_type, metric_name, value, unit, metadata
		FROM metrics WHERE ts >= ?`)
	args := []any{since.Unix()}

	if systemID != "" {
		b.WriteString(" AND system_id = ?")
		args = append(args, systemID)
	}
	if len(metricTypes) > 0 {
		b.WriteString(" AND metric_type IN (?" + strings.Repeat(", ?", len(metricTypes)-1) + ")")
		for _, mt := range metricTypes {
			args = append(args, mt)
		}
	}
	b.WriteString(" ORDER BY ts ASC, id ASC")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying metric events: %w", err)
	}
	defer rows.Close()

	var events []model.MetricEvent
	for rows.Next() {
		var (
			ev   model.MetricEvent
			ts   int64
			unit sql.NullString
			meta sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.SystemID, &ts, &ev.MetricType,
			&ev.MetricName, &ev.Value, &unit, &meta); err != nil {
			return nil, fmt.Errorf("scanning metric event: %w", err)
		}
		ev.Timestamp = time.Unix(ts, 0).UTC()
		ev.Unit = unit.String
		if meta.Valid {
			// Malformed stored metadata degrades to nil rather than failing the query.
			var m map[string]any
			if err := json.Unmarshal([]byte(meta.String), &m); err == nil {
				ev.Metadata = m
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// InsertAlert appends one alert and returns its ID.
func (s *Store) InsertAlert(ctx context.Context, a model.AlertData, ts time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (system_id, ts, severity, message)
		VALUES (?, ?, ?, ?)`,
		a.SystemID, ts.Unix(), a.Severity, a.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading alert id: %w", err)
	}
	return id, nil
}

// ListAlerts returns alerts joined with their system name, newest first.
// acknowledged filters by acknowledgment state when non-nil.
func (s *Store) ListAlerts(ctx context.Context, acknowledged *bool) ([]model.Alert, error) {
	query := `
		SELECT a.id, a.system_id, s.name, a.ts, a.severity, a.message, a.acknowledged, a.ticket_id
		FROM alerts a JOIN systems s ON a.system_id = s.id`
	var args []any
	if acknowledged != nil {
		query += " WHERE a.acknowledged = ?"
		args = append(args, boolToInt(*acknowledged))
	}
	query += " ORDER BY a.ts DESC, a.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var (
			a      model.Alert
			ts     int64
			acked  int
			ticket sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.SystemID, &a.SystemName, &ts,
			&a.Severity, &a.Message, &acked, &ticket); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.Timestamp = time.Unix(ts, 0).UTC()
		a.Acknowledged = acked != 0
		a.TicketID = ticket.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks one alert as acknowledged. Returns sql.ErrNoRows
// if the alert does not exist.
func (s *Store) AcknowledgeAlert(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("acknowledging alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledging alert %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAlertTicket records a ticket reference on an alert and acknowledges it.
// Returns sql.ErrNoRows if the alert does not exist.
func (s *Store) SetAlertTicket(ctx context.Context, id int64, ticketID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET ticket_id = ?, acknowledged = 1 WHERE id = ?`, ticketID, id)
	if err != nil {
		return fmt.Errorf("setting ticket on alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting ticket on alert %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountUnacknowledgedAlerts buckets unacknowledged alerts by severity.
func (s *Store) CountUnacknowledgedAlerts(ctx context.Context) (model.AlertCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM alerts
		WHERE acknowledged = 0 GROUP BY severity`)
	if err != nil {
		return model.AlertCounts{}, fmt.Errorf("counting alerts: %w", err)
	}
	defer rows.Close()

	var counts model.AlertCounts
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return model.AlertCounts{}, fmt.Errorf("scanning alert count: %w", err)
		}
		switch severity {
		case model.SeverityCritical:
			counts.Critical = n
		case model.SeverityWarning:
			counts.Warning = n
		case model.SeverityInfo:
			counts.Info = n
		}
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSystem(row rowScanner) (model.System, error) {
	var (
		sys      model.System
		hostname sql.NullString
		version  sql.NullString
		client   sql.NullString
		lastSeen int64
	)
	if err := row.Scan(&sys.ID, &sys.Name, &hostname, &version, &client, &lastSeen); err != nil {
		return model.System{}, fmt.Errorf("scanning system: %w", err)
	}
	sys.Hostname = hostname.String
	sys.Version = version.String
	sys.ClientName = client.String
	sys.LastSeen = time.Unix(lastSeen, 0).UTC()
	return sys, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
