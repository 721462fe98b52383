// Package service is the transaction boundary around jobs and interview
// sessions. Every mutating session call runs under a fail-fast per-session
// lock; reads never take it.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/logger"
	"interviewhub/internal/session"
)

// JobRepository loads and stores jobs. FindByID returns (nil, nil) when the
// job does not exist.
type JobRepository interface {
	FindByID(ctx context.Context, jobID string) (*job.Job, error)
	Save(ctx context.Context, j *job.Job) error
	List(ctx context.Context) ([]*job.Job, error)
}

type SessionService struct {
	Jobs      JobRepository
	States    session.StateRepository
	History   session.HistoryRepository
	Locks     ConcurrencyManager
	Generator session.QuestionGenerator
	Bank      session.QuestionBank
	Events    EventSink
	Log       *zap.SugaredLogger
	Now       func() time.Time
	NewID     func() string
}

func NewSessionService(jobs JobRepository, states session.StateRepository, history session.HistoryRepository, locks ConcurrencyManager, log *zap.SugaredLogger) *SessionService {
	if locks == nil {
		locks = NewLocalLocks()
	}
	return &SessionService{
		Jobs:    jobs,
		States:  states,
		History: history,
		Locks:   locks,
		Log:     logger.Component(log, "session-service"),
		Now:     time.Now,
		NewID:   func() string { return uuid.New().String() },
	}
}

func (s *SessionService) engineDeps() session.Deps {
	return session.Deps{
		State:     s.States,
		History:   s.History,
		Generator: s.Generator,
		Bank:      s.Bank,
		Log:       s.Log,
		Now:       s.Now,
	}
}

// CreateSessionFromJob starts a new session for a published job. The session
// id is fresh, so no lock is taken.
func (s *SessionService) CreateSessionFromJob(ctx context.Context, jobID, userID string) (session.State, error) {
	j, err := s.loadJob(ctx, jobID)
	if err != nil {
		return session.State{}, err
	}
	if err := j.AcceptSessions(); err != nil {
		return session.State{}, err
	}
	id := s.NewID()
	e, err := session.NewEngine(j.CreateSessionConfig(), session.NewState(id, jobID, userID, s.Now()), s.engineDeps())
	if err != nil {
		return session.State{}, err
	}
	if err := e.StartSession(ctx); err != nil {
		return session.State{}, errors.Wrapf(err, "start session %s", id)
	}
	st := e.State()
	s.audit(ctx, "session.create", st, map[string]any{"user_id": userID, "mode": j.Policy().Mode})
	return st, nil
}

// SubmitAnswer completes the current step with the candidate's answer. It
// fails immediately with ErrSessionLocked when another call holds the session.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID string, a session.Answer) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.answer", func(e *session.Engine) error {
		return e.ProcessAnswer(ctx, a)
	})
}

func (s *SessionService) HandleQuestionTimeout(ctx context.Context, sessionID string) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.question_timeout", func(e *session.Engine) error {
		return e.HandleQuestionTimeout(ctx)
	})
}

func (s *SessionService) HandleSilenceTimeout(ctx context.Context, sessionID string, isNoAnswer bool) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.silence_timeout", func(e *session.Engine) error {
		return e.HandleSilenceTimeout(ctx, isNoAnswer)
	})
}

func (s *SessionService) InterruptSession(ctx context.Context, sessionID, reason string) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.interrupt", func(e *session.Engine) error {
		return e.InterruptSession(ctx, reason)
	})
}

// ResumeSession asks the engine to resume. A resume the policy denies returns
// the unchanged state and no error; callers must check the status.
func (s *SessionService) ResumeSession(ctx context.Context, sessionID string) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.resume", func(e *session.Engine) error {
		return e.ResumeSession(ctx)
	})
}

func (s *SessionService) SignalEarlyExit(ctx context.Context, sessionID string) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.early_exit", func(e *session.Engine) error {
		return e.SignalEarlyExit(ctx)
	})
}

// TerminateSession ends the session on an operator's request.
func (s *SessionService) TerminateSession(ctx context.Context, sessionID string) (session.State, error) {
	return s.mutate(ctx, sessionID, "session.terminate", func(e *session.Engine) error {
		return e.TerminateSession(ctx, session.ReasonAdminTerminated)
	})
}

// GetSession reads the hot state without locking. It returns (nil, nil) for
// an unknown session.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*session.State, error) {
	return s.States.GetState(ctx, sessionID)
}

// mutate is the locked section shared by every write: reload the state,
// rebuild the config from the job, run op on a fresh engine.
func (s *SessionService) mutate(ctx context.Context, sessionID, evtType string, op func(*session.Engine) error) (session.State, error) {
	release, err := s.Locks.TryAcquire(ctx, sessionID)
	if err != nil {
		s.Log.Infow("session busy", logger.FieldSessionID, sessionID, "op", evtType)
		return session.State{}, err
	}
	defer release()

	st, err := s.States.GetState(ctx, sessionID)
	if err != nil {
		return session.State{}, errors.Wrapf(err, "load session %s", sessionID)
	}
	if st == nil {
		return session.State{}, notFound("session", sessionID)
	}
	j, err := s.loadJob(ctx, st.JobID)
	if err != nil {
		return session.State{}, err
	}
	e, err := session.NewEngine(j.CreateSessionConfig(), *st, s.engineDeps())
	if err != nil {
		return session.State{}, err
	}
	from := st.Status
	if err := op(e); err != nil {
		return session.State{}, err
	}
	out := e.State()
	s.audit(ctx, evtType, out, map[string]any{"from": from, "to": out.Status, "step": out.CurrentStep})
	return out, nil
}

func (s *SessionService) loadJob(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.Jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "load job %s", jobID)
	}
	if j == nil {
		return nil, notFound("job", jobID)
	}
	return j, nil
}

// audit failures are logged; the transition is already committed.
func (s *SessionService) audit(ctx context.Context, evtType string, st session.State, payload map[string]any) {
	if s.Events == nil {
		return
	}
	payload["job_id"] = st.JobID
	if err := s.Events.Append(ctx, evtType, "session", st.SessionID, ActorFrom(ctx), payload); err != nil {
		s.Log.Warnw("audit event not recorded", "type", evtType, logger.FieldSessionID, st.SessionID, logger.FieldError, err)
	}
}
