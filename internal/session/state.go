package session

import (
	"slices"
	"time"

	"interviewhub/internal/domain"
)

// Trigger tags what completed a step. The transition logic is the same for all.
type Trigger string

const (
	TriggerAnswer          Trigger = "ANSWER"
	TriggerSilenceTimeout  Trigger = "SILENCE_TIMEOUT"
	TriggerQuestionTimeout Trigger = "QUESTION_TIMEOUT"
)

type TerminationReason string

const (
	ReasonMaxQuestionsReached TerminationReason = "MAX_QUESTIONS_REACHED"
	ReasonEarlyExitSignal     TerminationReason = "EARLY_EXIT_SIGNAL"
	ReasonAdminTerminated     TerminationReason = "ADMIN_TERMINATED"
)

// StepRecord is one completed step of the interview.
type StepRecord struct {
	Step             int                    `json:"step"`
	Question         domain.SessionQuestion `json:"question"`
	Trigger          Trigger                `json:"trigger"`
	NoAnswer         bool                   `json:"no_answer"`
	AnswerDurationMS int64                  `json:"answer_duration_ms"`
	AnswerText       string                 `json:"answer_text,omitempty"`
	CompletedAt      time.Time              `json:"completed_at"`
}

// State is the runtime context of one session as kept in hot storage. Only the
// Engine changes it; everyone else works on copies.
type State struct {
	SessionID               string                  `json:"session_id"`
	JobID                   string                  `json:"job_id"`
	UserID                  string                  `json:"user_id,omitempty"`
	Status                  domain.SessionStatus    `json:"status"`
	CreatedAt               time.Time               `json:"created_at"`
	StartedAt               *time.Time              `json:"started_at,omitempty"`
	UpdatedAt               time.Time               `json:"updated_at"`
	EndedAt                 *time.Time              `json:"ended_at,omitempty"`
	CurrentStep             int                     `json:"current_step"`
	CompletedQuestionsCount int                     `json:"completed_questions_count"`
	EarlyExitSignaled       bool                    `json:"early_exit_signaled"`
	CurrentQuestion         *domain.SessionQuestion `json:"current_question,omitempty"`
	QuestionHistory         []StepRecord            `json:"question_history,omitempty"`
	TerminationReason       TerminationReason       `json:"termination_reason,omitempty"`
	InterruptionReason      string                  `json:"interruption_reason,omitempty"`
}

// NewState returns an APPLIED session.
func NewState(sessionID, jobID, userID string, now time.Time) State {
	now = now.UTC()
	return State{
		SessionID: sessionID,
		JobID:     jobID,
		UserID:    userID,
		Status:    domain.StatusApplied,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.StartedAt = copyTime(s.StartedAt)
	s.EndedAt = copyTime(s.EndedAt)
	if s.CurrentQuestion != nil {
		q := s.CurrentQuestion.Clone()
		s.CurrentQuestion = &q
	}
	if s.QuestionHistory != nil {
		h := slices.Clone(s.QuestionHistory)
		for i := range h {
			h[i].Question = h[i].Question.Clone()
		}
		s.QuestionHistory = h
	}
	return s
}

// AskedQuestionIDs lists the ids of every question already shown, current included.
func (s State) AskedQuestionIDs() []string {
	ids := make([]string, 0, len(s.QuestionHistory)+1)
	for _, r := range s.QuestionHistory {
		ids = append(ids, r.Question.ID)
	}
	if s.CurrentQuestion != nil {
		ids = append(ids, s.CurrentQuestion.ID)
	}
	return ids
}

// Result is the final record flushed to cold storage.
type Result struct {
	SessionID          string               `json:"session_id"`
	JobID              string               `json:"job_id"`
	UserID             string               `json:"user_id,omitempty"`
	Mode               domain.InterviewMode `json:"mode"`
	Status             domain.SessionStatus `json:"status"`
	Reason             string               `json:"reason,omitempty"`
	CompletedQuestions int                  `json:"completed_questions"`
	TotalQuestionLimit int                  `json:"total_question_limit"`
	StartedAt          *time.Time           `json:"started_at,omitempty"`
	EndedAt            *time.Time           `json:"ended_at,omitempty"`
	History            []StepRecord         `json:"history,omitempty"`
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
