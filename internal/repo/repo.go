// Package repo implements the storage interfaces on SQLite.
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
)

// Repo groups the SQLite stores that share one database handle.
type Repo struct {
	DB *sql.DB
}

func (r Repo) Jobs() Jobs                     { return Jobs{DB: r.DB} }
func (r Repo) Questions() Questions           { return Questions{DB: r.DB} }
func (r Repo) SessionStates() SessionStates   { return SessionStates{DB: r.DB} }
func (r Repo) SessionHistory() SessionHistory { return SessionHistory{DB: r.DB} }

// EventFilter narrows LatestEvents. Empty fields match everything.
type EventFilter struct {
	Type       string
	EntityKind string
	EntityID   string
	Before     int64
	Limit      int
}

// LatestEvents returns audit events newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilter) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Before > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Before)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,COALESCE(payload_json,'') FROM events WHERE %s ORDER BY id DESC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", v)
	}
	return t, nil
}
