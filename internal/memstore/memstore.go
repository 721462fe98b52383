// Package memstore keeps sessions, jobs and questions in process memory. Values
// are copied in and out so callers never share state with the store.
package memstore

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/session"
)

type StateStore struct {
	mu     sync.RWMutex
	states map[string]session.State
}

func NewStateStore() *StateStore {
	return &StateStore{states: map[string]session.State{}}
}

func (s *StateStore) SaveState(_ context.Context, sessionID string, st session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = st.Clone()
	return nil
}

func (s *StateStore) GetState(_ context.Context, sessionID string) (*session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}
	c := st.Clone()
	return &c, nil
}

func (s *StateStore) UpdateStatus(_ context.Context, sessionID string, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sessionID]
	if !ok {
		return errors.Newf("session %s not found", sessionID)
	}
	st.Status = status
	s.states[sessionID] = st
	return nil
}

func (s *StateStore) FindByJobID(_ context.Context, jobID string) ([]session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []session.State
	for _, st := range s.states {
		if st.JobID == jobID {
			out = append(out, st.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type HistoryStore struct {
	mu       sync.RWMutex
	results  map[string]session.Result
	statuses map[string]domain.SessionStatus
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		results:  map[string]session.Result{},
		statuses: map[string]domain.SessionStatus{},
	}
}

func (h *HistoryStore) SaveInterviewResult(_ context.Context, sessionID string, r session.Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.History = slices.Clone(r.History)
	h.results[sessionID] = r
	return nil
}

func (h *HistoryStore) UpdateInterviewStatus(_ context.Context, sessionID string, status domain.SessionStatus) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[sessionID] = status
	return nil
}

// Result returns the last flushed result for a session.
func (h *HistoryStore) Result(sessionID string) (session.Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.results[sessionID]
	return r, ok
}

// Status returns the cold status recorded for a session.
func (h *HistoryStore) Status(sessionID string) (domain.SessionStatus, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.statuses[sessionID]
	return s, ok
}

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]job.Snapshot
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: map[string]job.Snapshot{}}
}

func (s *JobStore) FindByID(_ context.Context, jobID string) (*job.Job, error) {
	s.mu.RLock()
	snap, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return job.Restore(snap)
}

func (s *JobStore) Save(_ context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID()] = j.Snapshot()
	return nil
}

func (s *JobStore) List(_ context.Context) ([]*job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*job.Job, 0, len(s.jobs))
	for _, snap := range s.jobs {
		j, err := job.Restore(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID() < out[k].ID() })
	return out, nil
}

type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	order     []string
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: map[string]domain.Question{}}
}

func (s *QuestionStore) Insert(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return errors.Newf("question %s already exists", q.ID)
	}
	s.questions[q.ID] = q.Clone()
	s.order = append(s.order, q.ID)
	return nil
}

func (s *QuestionStore) Update(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return errors.Newf("question %s not found", q.ID)
	}
	s.questions[q.ID] = q.Clone()
	return nil
}

func (s *QuestionStore) Get(_ context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, nil
	}
	c := q.Clone()
	return &c, nil
}

func (s *QuestionStore) List(_ context.Context, includeDeleted bool) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, id := range s.order {
		q := s.questions[id]
		if !includeDeleted && !q.Active() {
			continue
		}
		out = append(out, q.Clone())
	}
	return out, nil
}

// EventLog is an in-memory audit sink.
type EventLog struct {
	mu     sync.Mutex
	events []domain.Event
	Now    func() time.Time
}

func (l *EventLog) Append(_ context.Context, evtType, entityKind, entityID, actorID string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal event payload")
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, domain.Event{
		ID:         int64(len(l.events) + 1),
		TS:         now().UTC().Format(time.RFC3339),
		Type:       evtType,
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		Payload:    string(data),
	})
	return nil
}

func (l *EventLog) Events() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}
