// Package pgstore is the Postgres cold store for interview results.
package pgstore

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/session"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect opens a pool and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return errors.Wrap(err, "goose provider")
	}
	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, "goose up")
	}
	return nil
}

// HistoryStore implements session.HistoryRepository.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (h *HistoryStore) SaveInterviewResult(ctx context.Context, sessionID string, res session.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "marshal interview result")
	}
	_, err = h.pool.Exec(ctx, `INSERT INTO session_results(session_id,job_id,status,reason,result,updated_at) VALUES ($1,$2,$3,NULLIF($4,''),$5,now())
ON CONFLICT(session_id) DO UPDATE SET job_id=EXCLUDED.job_id,status=EXCLUDED.status,reason=EXCLUDED.reason,result=EXCLUDED.result,updated_at=now()`,
		sessionID, res.JobID, string(res.Status), res.Reason, string(data))
	return errors.Wrapf(err, "save result of %s", sessionID)
}

func (h *HistoryStore) UpdateInterviewStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	_, err := h.pool.Exec(ctx, `INSERT INTO session_results(session_id,status,updated_at) VALUES ($1,$2,now())
ON CONFLICT(session_id) DO UPDATE SET status=EXCLUDED.status,updated_at=now()`,
		sessionID, string(status))
	return errors.Wrapf(err, "update cold status of %s", sessionID)
}

// GetResult returns the stored result and cold status, or (nil, "", nil)
// when nothing was flushed yet.
func (h *HistoryStore) GetResult(ctx context.Context, sessionID string) (*session.Result, domain.SessionStatus, error) {
	var (
		status string
		data   []byte
	)
	err := h.pool.QueryRow(ctx, `SELECT status,result FROM session_results WHERE session_id=$1`, sessionID).Scan(&status, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "get result of %s", sessionID)
	}
	if data == nil {
		return nil, domain.SessionStatus(status), nil
	}
	var res session.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, "", errors.Wrapf(err, "decode result of %s", sessionID)
	}
	return &res, domain.SessionStatus(status), nil
}
