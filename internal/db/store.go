package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// ErrNotFound is returned when nothing was persisted for a session or role
var ErrNotFound = errors.New("not found")

// SiteScope is the snapshot scope used for site-wide statistics
const SiteScope = "SITE"

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Publish persists the envelopes that carry durable state. It implements
// models.MessagePublisher.
func (db *DB) Publish(ctx context.Context, env models.Envelope) error {
	switch p := env.Payload.(type) {
	case models.Session:
		return db.SaveSession(ctx, p)
	case models.CrossingEvent:
		return db.RecordEvent(ctx, env.SessionID, p)
	case models.CameraStatistics:
		return db.saveSnapshot(ctx, env.SessionID, string(env.Role), p, env.Timestamp)
	case models.SiteStatistics:
		return db.saveSnapshot(ctx, env.SessionID, SiteScope, p, env.Timestamp)
	case models.JobStatus:
		if env.Type != models.MessageStatus {
			return nil
		}
		return db.SaveJobStatus(ctx, env.SessionID, p, env.Timestamp)
	}
	return nil
}

func (db *DB) SaveSession(ctx context.Context, s models.Session) error {
	roles := make([]string, len(s.Roles))
	for i, r := range s.Roles {
		roles[i] = string(r)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, location, roles, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET location = excluded.location, roles = excluded.roles`,
		s.ID, s.Location, strings.Join(roles, ","), s.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, location, roles, created_at
		FROM sessions
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var s models.Session
		var roles, created string
		if err := rows.Scan(&s.ID, &s.Location, &roles, &created); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("session %s created_at: %w", s.ID, err)
		}
		for _, r := range strings.Split(roles, ",") {
			if r != "" {
				s.Roles = append(s.Roles, models.CameraRole(r))
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) RecordEvent(ctx context.Context, sessionID string, ev models.CrossingEvent) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO crossing_events
			(session_id, camera_role, track_id, category, direction, frame_index, capacity_min, capacity_max, occurred_at, run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, string(ev.Role), ev.TrackID, string(ev.Category), string(ev.Direction),
		ev.FrameIndex, ev.Capacity.Min, ev.Capacity.Max, ev.Timestamp.UTC().Format(timeLayout), ev.Run)
	if err != nil {
		return fmt.Errorf("record event for track %s: %w", ev.TrackID, err)
	}
	return nil
}

// Events returns the crossing events of one camera in a session, oldest
// first, limited to the last limit rows when limit > 0
func (db *DB) Events(ctx context.Context, sessionID string, role models.CameraRole, limit int) ([]models.CrossingEvent, error) {
	query := `
		SELECT camera_role, track_id, category, direction, frame_index, capacity_min, capacity_max, occurred_at, run
		FROM (
			SELECT * FROM crossing_events
			WHERE session_id = ? AND camera_role = ?
			ORDER BY event_id DESC
			LIMIT ?
		)
		ORDER BY event_id ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, query, sessionID, string(role), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.CrossingEvent
	for rows.Next() {
		var ev models.CrossingEvent
		var roleStr, category, direction, occurred string
		if err := rows.Scan(&roleStr, &ev.TrackID, &category, &direction, &ev.FrameIndex,
			&ev.Capacity.Min, &ev.Capacity.Max, &occurred, &ev.Run); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Role = models.CameraRole(roleStr)
		ev.Category = models.Category(category)
		ev.Direction = models.Direction(direction)
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("event occurred_at: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (db *DB) saveSnapshot(ctx context.Context, sessionID, scope string, payload interface{}, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", scope, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO statistics_snapshots (session_id, scope, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, scope) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		sessionID, scope, string(data), at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save %s snapshot: %w", scope, err)
	}
	return nil
}

// CameraSnapshot returns the last persisted statistics of role
func (db *DB) CameraSnapshot(ctx context.Context, sessionID string, role models.CameraRole) (models.CameraStatistics, error) {
	var stats models.CameraStatistics
	err := db.loadSnapshot(ctx, sessionID, string(role), &stats)
	return stats, err
}

// SiteSnapshot returns the last persisted site statistics
func (db *DB) SiteSnapshot(ctx context.Context, sessionID string) (models.SiteStatistics, error) {
	var stats models.SiteStatistics
	err := db.loadSnapshot(ctx, sessionID, SiteScope, &stats)
	return stats, err
}

func (db *DB) loadSnapshot(ctx context.Context, sessionID, scope string, dst interface{}) error {
	var data string
	err := db.QueryRowContext(ctx,
		`SELECT payload FROM statistics_snapshots WHERE session_id = ? AND scope = ?`,
		sessionID, scope).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s snapshot of session %s: %w", scope, sessionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s snapshot: %w", scope, err)
	}
	return json.Unmarshal([]byte(data), dst)
}

func (db *DB) SaveJobStatus(ctx context.Context, sessionID string, status models.JobStatus, at time.Time) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO job_status (session_id, camera_role, state, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, camera_role) DO UPDATE SET
			state = excluded.state, payload = excluded.payload, updated_at = excluded.updated_at`,
		sessionID, string(status.Role), status.State, string(data), at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save job status %s: %w", status.Role, err)
	}
	return nil
}

// JobState returns the last persisted state of role
func (db *DB) JobState(ctx context.Context, sessionID string, role models.CameraRole) (string, error) {
	var state string
	err := db.QueryRowContext(ctx,
		`SELECT state FROM job_status WHERE session_id = ? AND camera_role = ?`,
		sessionID, string(role)).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("job status %s of session %s: %w", role, sessionID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load job status %s: %w", role, err)
	}
	return state, nil
}
