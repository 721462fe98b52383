package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/logger"
	"interviewhub/internal/memstore"
	"interviewhub/internal/qbank"
	"interviewhub/internal/session"
)

var clock = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

type harness struct {
	states  *memstore.StateStore
	history *memstore.HistoryStore
	bank    *qbank.Service
}

func newHarness() harness {
	bank := qbank.NewService(memstore.NewQuestionStore(), logger.Nop())
	bank.Now = clock
	return harness{
		states:  memstore.NewStateStore(),
		history: memstore.NewHistoryStore(),
		bank:    bank,
	}
}

func (h harness) deps(gen session.QuestionGenerator) session.Deps {
	return session.Deps{
		State:     h.states,
		History:   h.history,
		Generator: gen,
		Bank:      h.bank,
		Log:       logger.Nop(),
		Now:       clock,
	}
}

func sessionConfig(mode domain.InterviewMode, total int) job.SessionConfig {
	return job.SessionConfig{
		JobID:              "job-1",
		Mode:               mode,
		TotalQuestionLimit: total,
		MinQuestionCount:   10,
		QuestionTimeoutSec: 120,
		SilenceTimeoutSec:  15,
		EarlyExitEnabled:   true,
		ResultExposure:     domain.ExposureScoreOnly,
	}
}

var generated = session.GeneratorFunc(func(_ context.Context, req session.GenerationRequest) session.GenerationResult {
	return session.GenerationResult{
		Content:  fmt.Sprintf("generated question %d", req.Step),
		Metadata: map[string]string{"model": "test"},
		Success:  true,
	}
})

func startedEngine(t *testing.T, h harness, mode domain.InterviewMode, total int) *session.Engine {
	t.Helper()
	e, err := session.NewEngine(sessionConfig(mode, total), session.NewState("s-1", "job-1", "u-1", clock()), h.deps(generated))
	require.NoError(t, err)
	require.NoError(t, e.StartSession(context.Background()))
	return e
}

func answer(t *testing.T, e *session.Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, e.ProcessAnswer(context.Background(), session.Answer{Text: "ok", Duration: 30 * time.Second}))
	}
}

func TestNewEngineRejectsUnknownMode(t *testing.T) {
	h := newHarness()
	_, err := session.NewEngine(sessionConfig("EXAM", 3), session.NewState("s-1", "job-1", "", clock()), h.deps(nil))
	assert.True(t, errors.Is(err, session.ErrUnknownMode))
}

func TestStartSession(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 3)

	st := e.State()
	assert.Equal(t, domain.StatusInProgress, st.Status)
	assert.Equal(t, 1, st.CurrentStep)
	require.NotNil(t, st.CurrentQuestion)
	assert.Equal(t, domain.SourceGenerated, st.CurrentQuestion.SourceType)
	assert.Equal(t, "generated question 1", st.CurrentQuestion.Content)
	assert.Equal(t, "gen-s-1-1", st.CurrentQuestion.ID)

	stored, err := h.states.GetState(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, st, *stored)
}

func TestStartSessionIsNoOpUnlessApplied(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 3)
	answer(t, e, 1)
	require.NoError(t, e.StartSession(context.Background()))
	assert.Equal(t, 2, e.State().CurrentStep)
}

func TestMaxQuestionsOverridesMinimum(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 3)

	answer(t, e, 2)
	assert.Equal(t, domain.StatusInProgress, e.State().Status)
	assert.Equal(t, 3, e.State().CurrentStep)

	answer(t, e, 1)
	st := e.State()
	assert.Equal(t, domain.StatusCompleted, st.Status)
	assert.Equal(t, session.ReasonMaxQuestionsReached, st.TerminationReason)
	assert.Equal(t, 3, st.CompletedQuestionsCount)
	assert.Len(t, st.QuestionHistory, 3)
	require.NotNil(t, st.EndedAt)

	status, ok := h.history.Status("s-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, status)
	res, ok := h.history.Result("s-1")
	require.True(t, ok)
	assert.Equal(t, string(session.ReasonMaxQuestionsReached), res.Reason)
	assert.Equal(t, 3, res.CompletedQuestions)
	assert.Len(t, res.History, 3)
}

func TestMaxQuestionsWinsOverEarlyExit(t *testing.T) {
	for _, mode := range []domain.InterviewMode{domain.ModeActual, domain.ModePractice} {
		t.Run(string(mode), func(t *testing.T) {
			h := newHarness()
			e := startedEngine(t, h, mode, 1)
			require.NoError(t, e.SignalEarlyExit(context.Background()))
			answer(t, e, 1)
			assert.Equal(t, domain.StatusCompleted, e.State().Status)
			assert.Equal(t, session.ReasonMaxQuestionsReached, e.State().TerminationReason)
		})
	}
}

func TestActualEarlyExitGatedByMinimum(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 20)
	require.NoError(t, e.SignalEarlyExit(context.Background()))

	answer(t, e, 9)
	assert.Equal(t, domain.StatusInProgress, e.State().Status)
	assert.Equal(t, 9, e.State().CompletedQuestionsCount)

	answer(t, e, 1)
	assert.Equal(t, domain.StatusCompleted, e.State().Status)
	assert.Equal(t, session.ReasonEarlyExitSignal, e.State().TerminationReason)
	assert.Equal(t, 10, e.State().CompletedQuestionsCount)
}

func TestActualEarlyExitAfterMinimum(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 20)
	answer(t, e, 12)
	require.NoError(t, e.SignalEarlyExit(context.Background()))
	assert.Equal(t, domain.StatusInProgress, e.State().Status)

	answer(t, e, 1)
	assert.Equal(t, domain.StatusCompleted, e.State().Status)
	assert.Equal(t, session.ReasonEarlyExitSignal, e.State().TerminationReason)
	assert.Equal(t, 13, e.State().CompletedQuestionsCount)
}

func TestPracticeEarlyExitOnNextStep(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModePractice, 20)
	require.NoError(t, e.SignalEarlyExit(context.Background()))
	answer(t, e, 1)
	assert.Equal(t, domain.StatusCompleted, e.State().Status)
	assert.Equal(t, session.ReasonEarlyExitSignal, e.State().TerminationReason)
	assert.Equal(t, 1, e.State().CompletedQuestionsCount)
}

func TestSignalEarlyExitDisabled(t *testing.T) {
	h := newHarness()
	cfg := sessionConfig(domain.ModePractice, 5)
	cfg.EarlyExitEnabled = false
	e, err := session.NewEngine(cfg, session.NewState("s-1", "job-1", "", clock()), h.deps(generated))
	require.NoError(t, err)
	require.NoError(t, e.StartSession(context.Background()))
	err = e.SignalEarlyExit(context.Background())
	assert.True(t, errors.Is(err, session.ErrEarlyExitDisabled))
	assert.False(t, e.State().EarlyExitSignaled)
}

func TestTimeoutsCompleteSteps(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModePractice, 5)
	ctx := context.Background()
	require.NoError(t, e.HandleSilenceTimeout(ctx, true))
	require.NoError(t, e.HandleQuestionTimeout(ctx))
	require.NoError(t, e.ProcessAnswer(ctx, session.Answer{Text: "answer", Duration: 1500 * time.Millisecond}))

	st := e.State()
	require.Len(t, st.QuestionHistory, 3)
	assert.Equal(t, session.TriggerSilenceTimeout, st.QuestionHistory[0].Trigger)
	assert.True(t, st.QuestionHistory[0].NoAnswer)
	assert.Equal(t, session.TriggerQuestionTimeout, st.QuestionHistory[1].Trigger)
	assert.False(t, st.QuestionHistory[1].NoAnswer)
	assert.Equal(t, session.TriggerAnswer, st.QuestionHistory[2].Trigger)
	assert.Equal(t, int64(1500), st.QuestionHistory[2].AnswerDurationMS)
	assert.Equal(t, "generated question 1", st.QuestionHistory[0].Question.Content)
	assert.Equal(t, 3, st.CompletedQuestionsCount)
	assert.Equal(t, 4, st.CurrentStep)
}

func TestInterruptThenResumeActual(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 5)
	ctx := context.Background()
	require.NoError(t, e.InterruptSession(ctx, "camera disconnected"))
	assert.Equal(t, domain.StatusInterrupted, e.State().Status)
	assert.NotNil(t, e.State().EndedAt)

	// Resume under the strict policy is a silent no-op.
	require.NoError(t, e.ResumeSession(ctx))
	assert.Equal(t, domain.StatusInterrupted, e.State().Status)

	status, _ := h.history.Status("s-1")
	assert.Equal(t, domain.StatusInterrupted, status)
	res, ok := h.history.Result("s-1")
	require.True(t, ok)
	assert.Equal(t, "camera disconnected", res.Reason)

	err := e.ProcessAnswer(ctx, session.Answer{})
	assert.True(t, errors.Is(err, session.ErrInvalidTransition))
}

func TestInterruptThenResumePractice(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModePractice, 5)
	ctx := context.Background()
	answer(t, e, 1)
	require.NoError(t, e.InterruptSession(ctx, "network"))
	assert.Equal(t, domain.StatusInterrupted, e.State().Status)
	assert.Nil(t, e.State().EndedAt)
	_, ok := h.history.Result("s-1")
	assert.True(t, ok)

	require.NoError(t, e.ResumeSession(ctx))
	st := e.State()
	assert.Equal(t, domain.StatusInProgress, st.Status)
	assert.Empty(t, st.InterruptionReason)
	assert.Equal(t, 2, st.CurrentStep)
	status, _ := h.history.Status("s-1")
	assert.Equal(t, domain.StatusInProgress, status)

	answer(t, e, 1)
	assert.Equal(t, 2, e.State().CompletedQuestionsCount)
}

func TestInterruptRequiresInProgress(t *testing.T) {
	h := newHarness()
	e, err := session.NewEngine(sessionConfig(domain.ModePractice, 5), session.NewState("s-1", "job-1", "", clock()), h.deps(generated))
	require.NoError(t, err)
	err = e.InterruptSession(context.Background(), "early")
	assert.True(t, errors.Is(err, session.ErrInvalidTransition))
}

func TestTerminateIsIrreversible(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModePractice, 5)
	ctx := context.Background()
	require.NoError(t, e.TerminateSession(ctx, session.ReasonAdminTerminated))
	assert.Equal(t, domain.StatusCompleted, e.State().Status)

	assert.True(t, errors.Is(e.TerminateSession(ctx, session.ReasonAdminTerminated), session.ErrInvalidTransition))
	assert.True(t, errors.Is(e.InterruptSession(ctx, "x"), session.ErrInvalidTransition))
	require.NoError(t, e.ResumeSession(ctx))
	assert.Equal(t, domain.StatusCompleted, e.State().Status)
}

func TestTerminateKeepsActualInterruption(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModeActual, 12)
	ctx := context.Background()
	answer(t, e, 1)
	require.NoError(t, e.InterruptSession(ctx, "network lost"))

	err := e.TerminateSession(ctx, session.ReasonAdminTerminated)
	assert.True(t, errors.Is(err, session.ErrInvalidTransition))
	st := e.State()
	assert.Equal(t, domain.StatusInterrupted, st.Status)
	assert.Empty(t, st.TerminationReason)
	assert.Equal(t, "network lost", st.InterruptionReason)
	res, ok := h.history.Result("s-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusInterrupted, res.Status)
	assert.Equal(t, "network lost", res.Reason)
}

func TestTerminatePracticeInterruption(t *testing.T) {
	h := newHarness()
	e := startedEngine(t, h, domain.ModePractice, 5)
	ctx := context.Background()
	require.NoError(t, e.InterruptSession(ctx, "network"))
	require.NoError(t, e.TerminateSession(ctx, session.ReasonAdminTerminated))
	assert.Equal(t, domain.StatusCompleted, e.State().Status)
	status, _ := h.history.Status("s-1")
	assert.Equal(t, domain.StatusCompleted, status)
}

type statusRecorder struct {
	*memstore.StateStore
	updates []domain.SessionStatus
}

func (r *statusRecorder) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	r.updates = append(r.updates, status)
	return r.StateStore.UpdateStatus(ctx, sessionID, status)
}

func TestFinalizeUpdatesHotStatus(t *testing.T) {
	h := newHarness()
	rec := &statusRecorder{StateStore: h.states}
	deps := h.deps(generated)
	deps.State = rec
	e, err := session.NewEngine(sessionConfig(domain.ModePractice, 5), session.NewState("s-1", "job-1", "u-1", clock()), deps)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.StartSession(ctx))
	assert.Empty(t, rec.updates)

	require.NoError(t, e.InterruptSession(ctx, "network"))
	require.NoError(t, e.ResumeSession(ctx))
	require.NoError(t, e.TerminateSession(ctx, session.ReasonAdminTerminated))
	assert.Equal(t, []domain.SessionStatus{domain.StatusInterrupted, domain.StatusCompleted}, rec.updates)

	st, err := h.states.GetState(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, domain.StatusCompleted, st.Status)
}

func TestSelectionFallsBackToBank(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	first, err := h.bank.Create(ctx, qbank.CreateOptions{ID: "b-1", Content: "What is a goroutine?", Difficulty: "easy"})
	require.NoError(t, err)
	_, err = h.bank.Create(ctx, qbank.CreateOptions{ID: "b-2", Content: "Explain channels."})
	require.NoError(t, err)

	e, err := session.NewEngine(sessionConfig(domain.ModePractice, 5), session.NewState("s-1", "job-1", "", clock()), h.deps(session.DisabledGenerator{}))
	require.NoError(t, err)
	require.NoError(t, e.StartSession(ctx))

	q := e.State().CurrentQuestion
	require.NotNil(t, q)
	assert.Equal(t, domain.SourceStatic, q.SourceType)
	assert.Equal(t, first.ID, q.ID)
	assert.Equal(t, "easy", q.SourceMetadata["difficulty"])

	answer(t, e, 1)
	assert.Equal(t, "b-2", e.State().CurrentQuestion.ID)
	answer(t, e, 1)
	assert.Equal(t, "b-1", e.State().CurrentQuestion.ID)
}

func TestGeneratorPanicFallsBack(t *testing.T) {
	h := newHarness()
	panicking := session.GeneratorFunc(func(context.Context, session.GenerationRequest) session.GenerationResult {
		panic("llm client exploded")
	})
	e, err := session.NewEngine(sessionConfig(domain.ModeActual, 5), session.NewState("s-1", "job-1", "", clock()), h.deps(panicking))
	require.NoError(t, err)
	require.NoError(t, e.StartSession(context.Background()))
	assert.Equal(t, session.EmergencyQuestionID, e.State().CurrentQuestion.ID)
}

type brokenBank struct{}

func (brokenBank) GetCandidates(context.Context, string, []string) ([]domain.Question, error) {
	return nil, errors.New("bank offline")
}

func TestEmergencyFallback(t *testing.T) {
	t.Run("empty bank", func(t *testing.T) {
		h := newHarness()
		e, err := session.NewEngine(sessionConfig(domain.ModeActual, 5), session.NewState("s-1", "job-1", "", clock()), h.deps(session.DisabledGenerator{}))
		require.NoError(t, err)
		require.NoError(t, e.StartSession(context.Background()))
		q := e.State().CurrentQuestion
		require.NotNil(t, q)
		assert.Equal(t, session.EmergencyQuestionID, q.ID)
		assert.Equal(t, domain.SourceStatic, q.SourceType)
	})
	t.Run("bank error and no generator", func(t *testing.T) {
		h := newHarness()
		deps := h.deps(nil)
		deps.Bank = brokenBank{}
		e, err := session.NewEngine(sessionConfig(domain.ModeActual, 5), session.NewState("s-1", "job-1", "", clock()), deps)
		require.NoError(t, err)
		require.NoError(t, e.StartSession(context.Background()))
		answer(t, e, 1)
		assert.Equal(t, session.EmergencyQuestionID, e.State().CurrentQuestion.ID)
	})
}

func TestEmbeddedQuestionIndependentOfBank(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, err := h.bank.Create(ctx, qbank.CreateOptions{ID: "b-1", Content: "Original content"})
	require.NoError(t, err)

	e, err := session.NewEngine(sessionConfig(domain.ModeActual, 5), session.NewState("s-1", "job-1", "", clock()), h.deps(session.DisabledGenerator{}))
	require.NoError(t, err)
	require.NoError(t, e.StartSession(ctx))
	require.Equal(t, "Original content", e.State().CurrentQuestion.Content)

	edited := "Edited content"
	_, err = h.bank.Edit(ctx, "b-1", qbank.EditOptions{Content: &edited})
	require.NoError(t, err)
	_, err = h.bank.MarkDeleted(ctx, "b-1")
	require.NoError(t, err)

	assert.Equal(t, "Original content", e.State().CurrentQuestion.Content)
	stored, err := h.states.GetState(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Original content", stored.CurrentQuestion.Content)

	answer(t, e, 1)
	st := e.State()
	assert.Equal(t, "Original content", st.QuestionHistory[0].Question.Content)
	assert.Equal(t, session.EmergencyQuestionID, st.CurrentQuestion.ID)

	audit, err := h.bank.GetQuestionByID(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Equal(t, domain.QuestionDeleted, audit.Status)
	assert.Equal(t, "Edited content", audit.Content)
}
