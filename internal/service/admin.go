package service

import (
	"context"
	"maps"
	"time"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/session"
)

// QuestionView is the admin projection of a session question. Source tells
// whether it came from the bank or the generator.
type QuestionView struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Source   domain.SourceType `json:"source" enum:"STATIC,GENERATED"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type StepView struct {
	Step             int          `json:"step"`
	Trigger          string       `json:"trigger"`
	NoAnswer         bool         `json:"no_answer"`
	AnswerDurationMS int64        `json:"answer_duration_ms"`
	Question         QuestionView `json:"question"`
	CompletedAt      time.Time    `json:"completed_at"`
}

type SessionView struct {
	SessionID          string               `json:"session_id"`
	JobID              string               `json:"job_id"`
	UserID             string               `json:"user_id,omitempty"`
	Status             domain.SessionStatus `json:"status"`
	CurrentStep        int                  `json:"current_step"`
	CompletedQuestions int                  `json:"completed_questions"`
	EarlyExitSignaled  bool                 `json:"early_exit_signaled"`
	CurrentQuestion    *QuestionView        `json:"current_question,omitempty"`
	Steps              []StepView           `json:"steps,omitempty"`
	TerminationReason  string               `json:"termination_reason,omitempty"`
	InterruptionReason string               `json:"interruption_reason,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	StartedAt          *time.Time           `json:"started_at,omitempty"`
	EndedAt            *time.Time           `json:"ended_at,omitempty"`
}

// AdminQueryService is the read side for operators. It never touches the
// session locks, so it stays available while interviews are being written.
type AdminQueryService struct {
	States session.StateRepository
}

func NewAdminQueryService(states session.StateRepository) *AdminQueryService {
	return &AdminQueryService{States: states}
}

func (a *AdminQueryService) ListByJob(ctx context.Context, jobID string) ([]SessionView, error) {
	states, err := a.States.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "list sessions of job %s", jobID)
	}
	out := make([]SessionView, 0, len(states))
	for _, st := range states {
		out = append(out, NewSessionView(st))
	}
	return out, nil
}

// Get returns (nil, nil) for an unknown session.
func (a *AdminQueryService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	st, err := a.States.GetState(ctx, sessionID)
	if err != nil || st == nil {
		return nil, err
	}
	v := NewSessionView(*st)
	return &v, nil
}

func NewSessionView(st session.State) SessionView {
	v := SessionView{
		SessionID:          st.SessionID,
		JobID:              st.JobID,
		UserID:             st.UserID,
		Status:             st.Status,
		CurrentStep:        st.CurrentStep,
		CompletedQuestions: st.CompletedQuestionsCount,
		EarlyExitSignaled:  st.EarlyExitSignaled,
		TerminationReason:  string(st.TerminationReason),
		InterruptionReason: st.InterruptionReason,
		CreatedAt:          st.CreatedAt,
		StartedAt:          st.StartedAt,
		EndedAt:            st.EndedAt,
	}
	if st.CurrentQuestion != nil {
		q := newQuestionView(*st.CurrentQuestion)
		v.CurrentQuestion = &q
	}
	for _, r := range st.QuestionHistory {
		v.Steps = append(v.Steps, StepView{
			Step:             r.Step,
			Trigger:          string(r.Trigger),
			NoAnswer:         r.NoAnswer,
			AnswerDurationMS: r.AnswerDurationMS,
			Question:         newQuestionView(r.Question),
			CompletedAt:      r.CompletedAt,
		})
	}
	return v
}

func newQuestionView(q domain.SessionQuestion) QuestionView {
	return QuestionView{
		ID:       q.ID,
		Content:  q.Content,
		Source:   q.SourceType,
		Metadata: maps.Clone(q.SourceMetadata),
	}
}
