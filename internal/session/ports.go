package session

import (
	"context"

	"interviewhub/internal/domain"
)

// StateRepository is hot storage for live sessions. GetState returns (nil, nil)
// when the session is unknown.
type StateRepository interface {
	SaveState(ctx context.Context, sessionID string, s State) error
	GetState(ctx context.Context, sessionID string) (*State, error)
	UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	FindByJobID(ctx context.Context, jobID string) ([]State, error)
}

// HistoryRepository is cold storage for finished or interrupted sessions.
type HistoryRepository interface {
	SaveInterviewResult(ctx context.Context, sessionID string, r Result) error
	UpdateInterviewStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
}

// QuestionBank supplies ACTIVE static questions.
type QuestionBank interface {
	GetCandidates(ctx context.Context, jobRole string, tags []string) ([]domain.Question, error)
}

// GenerationRequest is what the engine tells a generator about the session.
type GenerationRequest struct {
	SessionID         string
	JobID             string
	JobRole           string
	Mode              domain.InterviewMode
	Step              int
	Tags              []string
	PreviousQuestions []domain.SessionQuestion
}

// GenerationResult reports the outcome of generation. Failure is expressed by
// Success=false, never by panicking.
type GenerationResult struct {
	QuestionID string
	Content    string
	Metadata   map[string]string
	Success    bool
	Error      string
}

type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, req GenerationRequest) GenerationResult
}

// GeneratorFunc adapts a function to QuestionGenerator.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) GenerationResult

func (f GeneratorFunc) GenerateQuestion(ctx context.Context, req GenerationRequest) GenerationResult {
	return f(ctx, req)
}

// DisabledGenerator always fails, sending selection straight to the bank.
type DisabledGenerator struct{}

func (DisabledGenerator) GenerateQuestion(context.Context, GenerationRequest) GenerationResult {
	return GenerationResult{Success: false, Error: "question generation disabled"}
}
