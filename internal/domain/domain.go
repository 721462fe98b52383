package domain

import (
	"maps"
	"slices"
	"time"
)

type InterviewMode string

const (
	ModeActual   InterviewMode = "ACTUAL"
	ModePractice InterviewMode = "PRACTICE"
)

func (m InterviewMode) Valid() bool {
	return m == ModeActual || m == ModePractice
}

// SessionStatus is the lifecycle state of an interview session.
// EVALUATED is set by the evaluation worker after COMPLETED, never by the engine.
type SessionStatus string

const (
	StatusApplied     SessionStatus = "APPLIED"
	StatusInProgress  SessionStatus = "IN_PROGRESS"
	StatusCompleted   SessionStatus = "COMPLETED"
	StatusInterrupted SessionStatus = "INTERRUPTED"
	StatusEvaluated   SessionStatus = "EVALUATED"
)

func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusEvaluated
}

type ResultExposure string

const (
	ExposureFull      ResultExposure = "FULL"
	ExposureScoreOnly ResultExposure = "SCORE_ONLY"
	ExposureHidden    ResultExposure = "HIDDEN"
)

func (e ResultExposure) Valid() bool {
	return e == ExposureFull || e == ExposureScoreOnly || e == ExposureHidden
}

type SourceType string

const (
	SourceStatic    SourceType = "STATIC"
	SourceGenerated SourceType = "GENERATED"
)

// SessionQuestion is the question a session asks, copied out of the bank or the
// generator at selection time. Construct it with NewSessionQuestion so the
// metadata map is owned by the value.
type SessionQuestion struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	SourceType     SourceType        `json:"source_type" enum:"STATIC,GENERATED"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
}

func NewSessionQuestion(id, content string, source SourceType, metadata map[string]string) SessionQuestion {
	return SessionQuestion{
		ID:             id,
		Content:        content,
		SourceType:     source,
		SourceMetadata: maps.Clone(metadata),
	}
}

func (q SessionQuestion) Clone() SessionQuestion {
	q.SourceMetadata = maps.Clone(q.SourceMetadata)
	return q
}

type QuestionStatus string

const (
	QuestionActive  QuestionStatus = "ACTIVE"
	QuestionDeleted QuestionStatus = "DELETED"
)

// Question is a bank entry. Entries are only ever soft deleted.
type Question struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	Tags           []string          `json:"tags,omitempty"`
	Difficulty     string            `json:"difficulty,omitempty"`
	JobRole        string            `json:"job_role,omitempty"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
	Status         QuestionStatus    `json:"status" enum:"ACTIVE,DELETED"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (q Question) Active() bool { return q.Status == QuestionActive }

// MarkDeleted soft deletes the entry. Deleting twice is a no-op.
func (q *Question) MarkDeleted(now time.Time) {
	if q.Status == QuestionDeleted {
		return
	}
	q.Status = QuestionDeleted
	q.UpdatedAt = now
}

func (q Question) Clone() Question {
	q.Tags = slices.Clone(q.Tags)
	q.SourceMetadata = maps.Clone(q.SourceMetadata)
	return q
}

// HasTags reports whether the question carries every tag in want.
func (q Question) HasTags(want []string) bool {
	for _, t := range want {
		if !slices.Contains(q.Tags, t) {
			return false
		}
	}
	return true
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
