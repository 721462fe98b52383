package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"interviewhub/internal/errors"
	"interviewhub/internal/job"
)

// Jobs stores each job as its JSON snapshot plus indexed columns.
type Jobs struct {
	DB *sql.DB
}

func (r Jobs) FindByID(ctx context.Context, jobID string) (*job.Job, error) {
	var data string
	err := r.DB.QueryRowContext(ctx, `SELECT snapshot_json FROM jobs WHERE id=?`, jobID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", jobID)
	}
	return decodeJob(data)
}

func (r Jobs) Save(ctx context.Context, j *job.Job) error {
	snap := j.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal job")
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO jobs(id,title,status,snapshot_json,created_at,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET title=excluded.title,status=excluded.status,snapshot_json=excluded.snapshot_json,updated_at=excluded.updated_at`,
		snap.ID, snap.Title, string(snap.Status), string(data), formatTime(snap.CreatedAt), formatTime(snap.UpdatedAt))
	return errors.Wrapf(err, "save job %s", snap.ID)
}

func (r Jobs) List(ctx context.Context) ([]*job.Job, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT snapshot_json FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()
	var res []*job.Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		j, err := decodeJob(data)
		if err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

func decodeJob(data string) (*job.Job, error) {
	var snap job.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, errors.Wrap(err, "decode job")
	}
	return job.Restore(snap)
}
