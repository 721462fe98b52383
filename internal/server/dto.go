package server

import (
	"time"

	"interviewhub/internal/domain"
	"interviewhub/internal/job"
	"interviewhub/internal/service"
	"interviewhub/internal/session"
)

// Request payloads

type CreateJobRequest struct {
	ID       string            `json:"id,omitempty"`
	Title    string            `json:"title"`
	Policy   *job.Policy       `json:"policy,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type UpdateMetadataRequest struct {
	Metadata map[string]string `json:"metadata" doc:"Keys with an empty value are removed"`
}

type CreateSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type AnswerRequest struct {
	Text       string `json:"text,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty" minimum:"0"`
}

type SilenceTimeoutRequest struct {
	NoAnswer bool `json:"no_answer"`
}

type InterruptRequest struct {
	Reason string `json:"reason"`
}

type CreateQuestionRequest struct {
	ID             string            `json:"id,omitempty"`
	Content        string            `json:"content"`
	Tags           []string          `json:"tags,omitempty"`
	Difficulty     string            `json:"difficulty,omitempty"`
	JobRole        string            `json:"job_role,omitempty"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
}

type EditQuestionRequest struct {
	Content    *string  `json:"content,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Difficulty *string  `json:"difficulty,omitempty"`
	JobRole    *string  `json:"job_role,omitempty"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

// Responses

type JobResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Status      string            `json:"status" enum:"DRAFT,PUBLISHED,CLOSED"`
	Policy      job.Policy        `json:"policy"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty"`
}

func jobResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:          j.ID(),
		Title:       j.Title(),
		Status:      string(j.Status()),
		Policy:      j.Policy(),
		Metadata:    j.Metadata(),
		CreatedAt:   j.CreatedAt(),
		UpdatedAt:   j.UpdatedAt(),
		PublishedAt: j.PublishedAt(),
		ClosedAt:    j.ClosedAt(),
	}
}

type QuestionResponse struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	Tags           []string          `json:"tags"`
	Difficulty     string            `json:"difficulty,omitempty"`
	JobRole        string            `json:"job_role,omitempty"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
	Status         string            `json:"status" enum:"ACTIVE,DELETED"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func questionResponse(q domain.Question) QuestionResponse {
	return QuestionResponse{
		ID:             q.ID,
		Content:        q.Content,
		Tags:           nonNilSlice(q.Tags),
		Difficulty:     q.Difficulty,
		JobRole:        q.JobRole,
		SourceMetadata: q.SourceMetadata,
		Status:         string(q.Status),
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

// SessionResponse is what the candidate side sees: the current question and
// progress, without the answer history.
type SessionResponse struct {
	SessionID          string                `json:"session_id"`
	JobID              string                `json:"job_id"`
	Status             string                `json:"status" enum:"APPLIED,IN_PROGRESS,COMPLETED,INTERRUPTED,EVALUATED"`
	CurrentStep        int                   `json:"current_step"`
	CompletedQuestions int                   `json:"completed_questions"`
	EarlyExitSignaled  bool                  `json:"early_exit_signaled"`
	CurrentQuestion    *service.QuestionView `json:"current_question,omitempty"`
	TerminationReason  string                `json:"termination_reason,omitempty"`
	InterruptionReason string                `json:"interruption_reason,omitempty"`
	StartedAt          *time.Time            `json:"started_at,omitempty"`
	EndedAt            *time.Time            `json:"ended_at,omitempty"`
}

func sessionResponse(st session.State) SessionResponse {
	v := service.NewSessionView(st)
	return SessionResponse{
		SessionID:          v.SessionID,
		JobID:              v.JobID,
		Status:             string(v.Status),
		CurrentStep:        v.CurrentStep,
		CompletedQuestions: v.CompletedQuestions,
		EarlyExitSignaled:  v.EarlyExitSignaled,
		CurrentQuestion:    v.CurrentQuestion,
		TerminationReason:  v.TerminationReason,
		InterruptionReason: v.InterruptionReason,
		StartedAt:          v.StartedAt,
		EndedAt:            v.EndedAt,
	}
}

type ResultResponse struct {
	ColdStatus string          `json:"cold_status"`
	Result     *session.Result `json:"result,omitempty"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse(e)
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type WhoAmIResponse struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	Source  string   `json:"source"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// CandidateResultResponse is the result as the candidate may see it. Fields
// beyond status are filled according to the job's result exposure.
type CandidateResultResponse struct {
	SessionID          string               `json:"session_id"`
	Status             string               `json:"status"`
	Exposure           string               `json:"exposure" enum:"FULL,SCORE_ONLY,HIDDEN"`
	CompletedQuestions *int                 `json:"completed_questions,omitempty"`
	TotalQuestionLimit *int                 `json:"total_question_limit,omitempty"`
	History            []session.StepRecord `json:"history,omitempty"`
}
