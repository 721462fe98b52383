package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/session"
)

// SessionStates is the SQLite hot store. The full state is kept as JSON; job
// and status are duplicated into columns for queries.
type SessionStates struct {
	DB *sql.DB
}

func (r SessionStates) SaveState(ctx context.Context, sessionID string, st session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "marshal session state")
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO session_states(session_id,job_id,status,state_json,created_at,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(session_id) DO UPDATE SET status=excluded.status,state_json=excluded.state_json,updated_at=excluded.updated_at`,
		sessionID, st.JobID, string(st.Status), string(data), formatTime(st.CreatedAt), formatTime(st.UpdatedAt))
	return errors.Wrapf(err, "save session %s", sessionID)
}

func (r SessionStates) GetState(ctx context.Context, sessionID string) (*session.State, error) {
	var data string
	err := r.DB.QueryRowContext(ctx, `SELECT state_json FROM session_states WHERE session_id=?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get session %s", sessionID)
	}
	var st session.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", sessionID)
	}
	return &st, nil
}

// UpdateStatus rewrites only the status of a stored session.
func (r SessionStates) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var data string
	err = tx.QueryRowContext(ctx, `SELECT state_json FROM session_states WHERE session_id=?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Newf("session %s not found", sessionID)
	}
	if err != nil {
		return err
	}
	var st session.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return errors.Wrapf(err, "decode session %s", sessionID)
	}
	st.Status = status
	st.UpdatedAt = time.Now().UTC()
	out, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE session_states SET status=?,state_json=?,updated_at=? WHERE session_id=?`,
		string(status), string(out), formatTime(st.UpdatedAt), sessionID); err != nil {
		return errors.Wrapf(err, "update session %s", sessionID)
	}
	return tx.Commit()
}

func (r SessionStates) FindByJobID(ctx context.Context, jobID string) ([]session.State, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT state_json FROM session_states WHERE job_id=? ORDER BY created_at, session_id`, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "list sessions of job %s", jobID)
	}
	defer rows.Close()
	var res []session.State
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var st session.State
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return nil, errors.Wrap(err, "decode session")
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

// SessionHistory is the SQLite cold store for finished or interrupted sessions.
type SessionHistory struct {
	DB  *sql.DB
	Now func() time.Time
}

func (r SessionHistory) now() string {
	if r.Now != nil {
		return formatTime(r.Now())
	}
	return formatTime(time.Now())
}

func (r SessionHistory) SaveInterviewResult(ctx context.Context, sessionID string, res session.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "marshal interview result")
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO session_results(session_id,job_id,status,reason,result_json,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(session_id) DO UPDATE SET job_id=excluded.job_id,status=excluded.status,reason=excluded.reason,result_json=excluded.result_json,updated_at=excluded.updated_at`,
		sessionID, res.JobID, string(res.Status), nullable(res.Reason), string(data), r.now())
	return errors.Wrapf(err, "save result of %s", sessionID)
}

func (r SessionHistory) UpdateInterviewStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO session_results(session_id,status,updated_at) VALUES (?,?,?)
ON CONFLICT(session_id) DO UPDATE SET status=excluded.status,updated_at=excluded.updated_at`,
		sessionID, string(status), r.now())
	return errors.Wrapf(err, "update cold status of %s", sessionID)
}

// GetResult returns the stored result and cold status, or (nil, "", nil) when
// nothing was flushed yet.
func (r SessionHistory) GetResult(ctx context.Context, sessionID string) (*session.Result, domain.SessionStatus, error) {
	var (
		status string
		data   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `SELECT status,result_json FROM session_results WHERE session_id=?`, sessionID).Scan(&status, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "get result of %s", sessionID)
	}
	if !data.Valid {
		return nil, domain.SessionStatus(status), nil
	}
	var res session.Result
	if err := json.Unmarshal([]byte(data.String), &res); err != nil {
		return nil, "", errors.Wrapf(err, "decode result of %s", sessionID)
	}
	return &res, domain.SessionStatus(status), nil
}
