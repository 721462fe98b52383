// Package qbank is the static question bank. Entries are soft deleted only, and
// callers always receive copies, so a question embedded in a session never
// changes when the bank does.
package qbank

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/logger"
)

// Repository persists bank entries. Get returns (nil, nil) when the id is unknown.
type Repository interface {
	Insert(ctx context.Context, q domain.Question) error
	Update(ctx context.Context, q domain.Question) error
	Get(ctx context.Context, id string) (*domain.Question, error)
	List(ctx context.Context, includeDeleted bool) ([]domain.Question, error)
}

var ErrQuestionNotFound = errors.New("question not found")

type Service struct {
	Repo  Repository
	Log   *zap.SugaredLogger
	Now   func() time.Time
	NewID func() string
}

func NewService(repo Repository, log *zap.SugaredLogger) *Service {
	return &Service{
		Repo:  repo,
		Log:   logger.Component(log, "qbank"),
		Now:   time.Now,
		NewID: func() string { return uuid.New().String() },
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type CreateOptions struct {
	ID             string
	Content        string
	Tags           []string
	Difficulty     string
	JobRole        string
	SourceMetadata map[string]string
}

func (s *Service) Create(ctx context.Context, opts CreateOptions) (domain.Question, error) {
	content := strings.TrimSpace(opts.Content)
	if content == "" {
		return domain.Question{}, errors.New("question content is required")
	}
	id := opts.ID
	if id == "" {
		id = s.NewID()
	}
	now := s.now()
	q := domain.Question{
		ID:             id,
		Content:        content,
		Tags:           normalizeTags(opts.Tags),
		Difficulty:     opts.Difficulty,
		JobRole:        strings.TrimSpace(opts.JobRole),
		SourceMetadata: opts.SourceMetadata,
		Status:         domain.QuestionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}.Clone()
	if err := s.Repo.Insert(ctx, q); err != nil {
		return domain.Question{}, errors.Wrapf(err, "insert question %s", id)
	}
	return q, nil
}

// EditOptions holds the fields to change; nil leaves a field untouched.
type EditOptions struct {
	Content    *string
	Tags       []string
	Difficulty *string
	JobRole    *string
}

func (s *Service) Edit(ctx context.Context, id string, opts EditOptions) (domain.Question, error) {
	q, err := s.load(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if opts.Content != nil {
		c := strings.TrimSpace(*opts.Content)
		if c == "" {
			return domain.Question{}, errors.New("question content is required")
		}
		q.Content = c
	}
	if opts.Tags != nil {
		q.Tags = normalizeTags(opts.Tags)
	}
	if opts.Difficulty != nil {
		q.Difficulty = *opts.Difficulty
	}
	if opts.JobRole != nil {
		q.JobRole = strings.TrimSpace(*opts.JobRole)
	}
	q.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, q); err != nil {
		return domain.Question{}, errors.Wrapf(err, "update question %s", id)
	}
	return q, nil
}

// MarkDeleted soft deletes a question. The row stays readable by id.
func (s *Service) MarkDeleted(ctx context.Context, id string) (domain.Question, error) {
	q, err := s.load(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if !q.Active() {
		return q, nil
	}
	q.MarkDeleted(s.now())
	if err := s.Repo.Update(ctx, q); err != nil {
		return domain.Question{}, errors.Wrapf(err, "delete question %s", id)
	}
	s.Log.Infow("question deleted", logger.FieldQuestion, id)
	return q, nil
}

// GetCandidates returns ACTIVE questions usable for the role and tags. A
// question with no role is generic and matches any role; when tags are given
// a question must share at least one of them.
func (s *Service) GetCandidates(ctx context.Context, jobRole string, tags []string) ([]domain.Question, error) {
	all, err := s.Repo.List(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}
	tags = normalizeTags(tags)
	var out []domain.Question
	for _, q := range all {
		if !q.Active() {
			continue
		}
		if jobRole != "" && q.JobRole != "" && !strings.EqualFold(q.JobRole, jobRole) {
			continue
		}
		if len(tags) > 0 && !sharesTag(q.Tags, tags) {
			continue
		}
		out = append(out, q.Clone())
	}
	return out, nil
}

// GetQuestionByID returns the question in any status, or nil when unknown.
func (s *Service) GetQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.Repo.Get(ctx, id)
	if err != nil || q == nil {
		return nil, err
	}
	c := q.Clone()
	return &c, nil
}

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]domain.Question, error) {
	return s.Repo.List(ctx, includeDeleted)
}

func (s *Service) load(ctx context.Context, id string) (domain.Question, error) {
	q, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Question{}, errors.Wrapf(err, "get question %s", id)
	}
	if q == nil {
		return domain.Question{}, errors.Wrapf(ErrQuestionNotFound, "question %s", id)
	}
	return q.Clone(), nil
}

func normalizeTags(in []string) []string {
	var out []string
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func sharesTag(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
