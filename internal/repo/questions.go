package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
)

// Questions is the bank store. Rows are never deleted.
type Questions struct {
	DB *sql.DB
}

const questionColumns = `id,content,tags_json,COALESCE(difficulty,''),COALESCE(job_role,''),metadata_json,status,created_at,updated_at`

func (r Questions) Insert(ctx context.Context, q domain.Question) error {
	tags, meta, err := encodeQuestion(q)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO questions(id,content,tags_json,difficulty,job_role,metadata_json,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		q.ID, q.Content, tags, nullable(q.Difficulty), nullable(q.JobRole), meta, string(q.Status), formatTime(q.CreatedAt), formatTime(q.UpdatedAt))
	return errors.Wrapf(err, "insert question %s", q.ID)
}

func (r Questions) Update(ctx context.Context, q domain.Question) error {
	tags, meta, err := encodeQuestion(q)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE questions SET content=?,tags_json=?,difficulty=?,job_role=?,metadata_json=?,status=?,updated_at=? WHERE id=?`,
		q.Content, tags, nullable(q.Difficulty), nullable(q.JobRole), meta, string(q.Status), formatTime(q.UpdatedAt), q.ID)
	if err != nil {
		return errors.Wrapf(err, "update question %s", q.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("question %s not found", q.ID)
	}
	return nil
}

func (r Questions) Get(ctx context.Context, id string) (*domain.Question, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=?`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get question %s", id)
	}
	qs, err := scanQuestions(rows)
	if err != nil || len(qs) == 0 {
		return nil, err
	}
	return &qs[0], nil
}

func (r Questions) List(ctx context.Context, includeDeleted bool) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []any
	if !includeDeleted {
		query += ` WHERE status=?`
		args = append(args, string(domain.QuestionActive))
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]domain.Question, error) {
	defer rows.Close()
	var res []domain.Question
	for rows.Next() {
		var (
			q                  domain.Question
			tags, meta, status string
			created, updated   string
		)
		if err := rows.Scan(&q.ID, &q.Content, &tags, &q.Difficulty, &q.JobRole, &meta, &status, &created, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
			return nil, errors.Wrapf(err, "decode tags of %s", q.ID)
		}
		if err := json.Unmarshal([]byte(meta), &q.SourceMetadata); err != nil {
			return nil, errors.Wrapf(err, "decode metadata of %s", q.ID)
		}
		q.Status = domain.QuestionStatus(status)
		var err error
		if q.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if q.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

func encodeQuestion(q domain.Question) (string, string, error) {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	t, err := json.Marshal(tags)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal tags")
	}
	meta := q.SourceMetadata
	if meta == nil {
		meta = map[string]string{}
	}
	m, err := json.Marshal(meta)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal metadata")
	}
	return string(t), string(m), nil
}
