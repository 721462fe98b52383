// Package job holds the Job aggregate. A job's policy can change only while the
// job is a draft; publishing freezes it for every session created afterwards.
package job

import (
	"maps"
	"strings"
	"time"

	"interviewhub/internal/errors"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusClosed    Status = "CLOSED"
)

// Job is the aggregate root. Fields are unexported so that every policy change
// goes through SetPolicy.
type Job struct {
	id          string
	title       string
	status      Status
	policy      Policy
	metadata    map[string]string
	createdAt   time.Time
	updatedAt   time.Time
	publishedAt *time.Time
	closedAt    *time.Time
}

// New creates a DRAFT job. The policy must validate.
func New(id, title string, policy Policy, now time.Time) (*Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("job id is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("job title is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Job{
		id:        id,
		title:     strings.TrimSpace(title),
		status:    StatusDraft,
		policy:    policy.Clone(),
		metadata:  map[string]string{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (j *Job) ID() string                  { return j.id }
func (j *Job) Title() string               { return j.title }
func (j *Job) Status() Status              { return j.status }
func (j *Job) CreatedAt() time.Time        { return j.createdAt }
func (j *Job) UpdatedAt() time.Time        { return j.updatedAt }
func (j *Job) PublishedAt() *time.Time     { return copyTime(j.publishedAt) }
func (j *Job) ClosedAt() *time.Time        { return copyTime(j.closedAt) }
func (j *Job) Policy() Policy              { return j.policy.Clone() }
func (j *Job) Metadata() map[string]string { return maps.Clone(j.metadata) }

// SetPolicy replaces the policy. It is the only way to change the policy and
// fails with a PolicyValidationError once the job has left DRAFT.
func (j *Job) SetPolicy(p Policy, now time.Time) error {
	if j.status != StatusDraft {
		return policyError("", "policy is frozen once the job is "+string(j.status))
	}
	if err := p.Validate(); err != nil {
		return err
	}
	j.policy = p.Clone()
	j.updatedAt = now.UTC()
	return nil
}

// UpdatePolicy applies mutate to a copy of the current policy and stores it
// through SetPolicy.
func (j *Job) UpdatePolicy(mutate func(*Policy), now time.Time) error {
	p := j.policy.Clone()
	mutate(&p)
	return j.SetPolicy(p, now)
}

// UpdateMetadata merges updates into the metadata. An empty value removes the key.
// Allowed in DRAFT and PUBLISHED.
func (j *Job) UpdateMetadata(updates map[string]string, now time.Time) error {
	if j.status == StatusClosed {
		return stateError("update metadata of", j.status)
	}
	for k, v := range updates {
		if v == "" {
			delete(j.metadata, k)
			continue
		}
		j.metadata[k] = v
	}
	j.updatedAt = now.UTC()
	return nil
}

func (j *Job) Publish(now time.Time) error {
	if j.status != StatusDraft {
		return stateError("publish", j.status)
	}
	now = now.UTC()
	j.status = StatusPublished
	j.publishedAt = &now
	j.updatedAt = now
	return nil
}

func (j *Job) Close(now time.Time) error {
	if j.status != StatusPublished {
		return stateError("close", j.status)
	}
	now = now.UTC()
	j.status = StatusClosed
	j.closedAt = &now
	j.updatedAt = now
	return nil
}

// AcceptSessions fails unless the job is PUBLISHED.
func (j *Job) AcceptSessions() error {
	if j.status != StatusPublished {
		return stateError("start a session for", j.status)
	}
	return nil
}

// CreateSessionConfig snapshots the current policy. The result shares no
// memory with the job.
func (j *Job) CreateSessionConfig() SessionConfig {
	p := j.policy.Clone()
	return SessionConfig{
		JobID:              j.id,
		Mode:               p.Mode,
		TotalQuestionLimit: p.TotalQuestionLimit,
		MinQuestionCount:   p.MinQuestionCount,
		QuestionTimeoutSec: p.QuestionTimeoutSec,
		SilenceTimeoutSec:  p.SilenceTimeoutSec,
		EarlyExitEnabled:   p.EarlyExitEnabled,
		ResultExposure:     p.ResultExposure,
		JobRole:            p.JobRole,
		QuestionTags:       p.QuestionTags,
	}
}

// Snapshot is the persisted form of a Job.
type Snapshot struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Status      Status            `json:"status"`
	Policy      Policy            `json:"policy"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty"`
}

func (j *Job) Snapshot() Snapshot {
	return Snapshot{
		ID:          j.id,
		Title:       j.title,
		Status:      j.status,
		Policy:      j.policy.Clone(),
		Metadata:    maps.Clone(j.metadata),
		CreatedAt:   j.createdAt,
		UpdatedAt:   j.updatedAt,
		PublishedAt: copyTime(j.publishedAt),
		ClosedAt:    copyTime(j.closedAt),
	}
}

// Restore rebuilds a job from storage. It checks the status but does not apply
// the draft-only rule, since the stored policy was accepted when written.
func Restore(s Snapshot) (*Job, error) {
	switch s.Status {
	case StatusDraft, StatusPublished, StatusClosed:
	default:
		return nil, errors.Newf("job %s has unknown status %q", s.ID, s.Status)
	}
	md := maps.Clone(s.Metadata)
	if md == nil {
		md = map[string]string{}
	}
	return &Job{
		id:          s.ID,
		title:       s.Title,
		status:      s.Status,
		policy:      s.Policy.Clone(),
		metadata:    md,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
		publishedAt: copyTime(s.PublishedAt),
		closedAt:    copyTime(s.ClosedAt),
	}, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
