package redisstore

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/session"
)

// StateStore keeps each session as a JSON string and indexes sessions per job
// in a sorted set scored by creation time.
type StateStore struct {
	client *goredis.Client
	prefix string
}

func NewStateStore(client *goredis.Client, prefix string) *StateStore {
	return &StateStore{client: client, prefix: prefixOrDefault(prefix)}
}

func (s *StateStore) key(sessionID string) string { return s.prefix + "session:" + sessionID }
func (s *StateStore) jobKey(jobID string) string   { return s.prefix + "job:" + jobID + ":sessions" }

func (s *StateStore) SaveState(ctx context.Context, sessionID string, st session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "marshal session state")
	}
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.key(sessionID), data, 0)
		p.ZAddNX(ctx, s.jobKey(st.JobID), goredis.Z{Score: float64(st.CreatedAt.UnixMilli()), Member: sessionID})
		return nil
	})
	return errors.Wrapf(err, "save session %s", sessionID)
}

func (s *StateStore) GetState(ctx context.Context, sessionID string) (*session.State, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get session %s", sessionID)
	}
	var st session.State
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", sessionID)
	}
	return &st, nil
}

// UpdateStatus rewrites the status under WATCH so a concurrent SaveState is
// not overwritten with stale data.
func (s *StateStore) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	key := s.key(sessionID)
	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			return errors.Newf("session %s not found", sessionID)
		}
		if err != nil {
			return err
		}
		var st session.State
		if err := json.Unmarshal([]byte(val), &st); err != nil {
			return errors.Wrapf(err, "decode session %s", sessionID)
		}
		st.Status = status
		st.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	return errors.Wrapf(err, "update status of %s", sessionID)
}

func (s *StateStore) FindByJobID(ctx context.Context, jobID string) ([]session.State, error) {
	ids, err := s.client.ZRange(ctx, s.jobKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "list sessions of job %s", jobID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "load sessions of job %s", jobID)
	}
	out := make([]session.State, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var st session.State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, errors.Wrap(err, "decode session")
		}
		out = append(out, st)
	}
	return out, nil
}
