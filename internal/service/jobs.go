package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/logger"
)

type JobService struct {
	Jobs   JobRepository
	Events EventSink
	Log    *zap.SugaredLogger
	Now    func() time.Time
	NewID  func() string
}

func NewJobService(jobs JobRepository, log *zap.SugaredLogger) *JobService {
	return &JobService{
		Jobs:  jobs,
		Log:   logger.Component(log, "job-service"),
		Now:   time.Now,
		NewID: func() string { return uuid.New().String() },
	}
}

// JobCreateOptions are parameters for creating a draft job.
type JobCreateOptions struct {
	ID       string
	Title    string
	Policy   job.Policy
	Metadata map[string]string
}

func (s *JobService) Create(ctx context.Context, opts JobCreateOptions) (*job.Job, error) {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = s.NewID()
	}
	existing, err := s.Jobs.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "load job %s", id)
	}
	if existing != nil {
		return nil, errors.Newf("job %s already exists", id)
	}
	j, err := job.New(id, opts.Title, opts.Policy, s.Now())
	if err != nil {
		return nil, err
	}
	if len(opts.Metadata) > 0 {
		if err := j.UpdateMetadata(opts.Metadata, s.Now()); err != nil {
			return nil, err
		}
	}
	if err := s.Jobs.Save(ctx, j); err != nil {
		return nil, errors.Wrapf(err, "save job %s", id)
	}
	s.audit(ctx, "job.create", j, map[string]any{"title": j.Title(), "mode": j.Policy().Mode})
	return j, nil
}

// Get returns ErrNotFound for an unknown job.
func (s *JobService) Get(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.Jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "load job %s", jobID)
	}
	if j == nil {
		return nil, notFound("job", jobID)
	}
	return j, nil
}

func (s *JobService) List(ctx context.Context) ([]*job.Job, error) {
	return s.Jobs.List(ctx)
}

// UpdatePolicy replaces the policy of a DRAFT job.
func (s *JobService) UpdatePolicy(ctx context.Context, jobID string, p job.Policy) (*job.Job, error) {
	return s.change(ctx, jobID, "job.policy", func(j *job.Job, now time.Time) error {
		return j.SetPolicy(p, now)
	})
}

func (s *JobService) UpdateMetadata(ctx context.Context, jobID string, updates map[string]string) (*job.Job, error) {
	return s.change(ctx, jobID, "job.metadata", func(j *job.Job, now time.Time) error {
		return j.UpdateMetadata(updates, now)
	})
}

func (s *JobService) Publish(ctx context.Context, jobID string) (*job.Job, error) {
	return s.change(ctx, jobID, "job.publish", (*job.Job).Publish)
}

func (s *JobService) Close(ctx context.Context, jobID string) (*job.Job, error) {
	return s.change(ctx, jobID, "job.close", (*job.Job).Close)
}

func (s *JobService) change(ctx context.Context, jobID, evtType string, fn func(*job.Job, time.Time) error) (*job.Job, error) {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	from := j.Status()
	if err := fn(j, s.Now()); err != nil {
		return nil, err
	}
	if err := s.Jobs.Save(ctx, j); err != nil {
		return nil, errors.Wrapf(err, "save job %s", jobID)
	}
	s.audit(ctx, evtType, j, map[string]any{"from": from, "to": j.Status()})
	s.Log.Infow("job updated", logger.FieldJobID, jobID, "type", evtType, logger.FieldStatus, j.Status())
	return j, nil
}

func (s *JobService) audit(ctx context.Context, evtType string, j *job.Job, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Append(ctx, evtType, "job", j.ID(), ActorFrom(ctx), payload); err != nil {
		s.Log.Warnw("audit event not recorded", "type", evtType, logger.FieldJobID, j.ID(), logger.FieldError, err)
	}
}
