// Package session runs one interview session: it owns the session state,
// consults the mode policy on every transition, picks the next question and
// persists to hot and cold storage.
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/logger"
)

var (
	// ErrInvalidTransition is returned when the session status does not allow the call.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrEarlyExitDisabled is returned when an early-exit signal arrives for a
	// session whose job disabled early exit.
	ErrEarlyExitDisabled = errors.New("early exit disabled for this session")
)

// EmergencyQuestionID identifies the built-in question used when both the
// generator and the bank come up empty.
const EmergencyQuestionID = "emergency-fallback"

const emergencyQuestionContent = "Please introduce yourself and walk me through a recent project you are proud of."

// EmergencyQuestion returns the last-resort question.
func EmergencyQuestion() domain.SessionQuestion {
	return domain.NewSessionQuestion(EmergencyQuestionID, emergencyQuestionContent, domain.SourceStatic,
		map[string]string{"fallback": "emergency"})
}

// Deps are the collaborators an Engine needs. State and History are required.
type Deps struct {
	State     StateRepository
	History   HistoryRepository
	Generator QuestionGenerator
	Bank      QuestionBank
	Log       *zap.SugaredLogger
	Now       func() time.Time
}

// Answer is a candidate's reply to the current question.
type Answer struct {
	Text     string
	Duration time.Duration
}

// Engine is the session state machine. An Engine must only be used by one
// caller at a time; SessionService guarantees that with a per-session lock.
type Engine struct {
	deps   Deps
	cfg    job.SessionConfig
	policy Policy
	state  State
	log    *zap.SugaredLogger
}

// NewEngine builds an engine over a copy of st. It fails on an unknown mode or
// missing storage.
func NewEngine(cfg job.SessionConfig, st State, deps Deps) (*Engine, error) {
	policy, err := PolicyFor(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if deps.State == nil || deps.History == nil {
		return nil, errors.New("session engine requires state and history repositories")
	}
	if st.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := logger.Component(deps.Log, "session").With(
		logger.FieldSessionID, st.SessionID,
		logger.FieldJobID, st.JobID,
		logger.FieldMode, cfg.Mode,
	)
	return &Engine{
		deps:   deps,
		cfg:    cfg.Clone(),
		policy: policy,
		state:  st.Clone(),
		log:    log,
	}, nil
}

// State returns a copy of the current session state.
func (e *Engine) State() State { return e.state.Clone() }

func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) Config() job.SessionConfig { return e.cfg.Clone() }

func (e *Engine) now() time.Time { return e.deps.Now().UTC() }

// StartSession moves APPLIED to IN_PROGRESS and asks the first question. Any
// other status is logged and left alone.
func (e *Engine) StartSession(ctx context.Context) error {
	if e.state.Status != domain.StatusApplied {
		e.log.Infow("start ignored", logger.FieldStatus, e.state.Status)
		return nil
	}
	now := e.now()
	e.state.Status = domain.StatusInProgress
	e.state.StartedAt = &now
	e.state.CurrentStep = 1
	q := e.selectQuestion(ctx)
	e.state.CurrentQuestion = &q
	if err := e.commit(ctx); err != nil {
		return err
	}
	e.log.Infow("session started", logger.FieldQuestion, q.ID, logger.FieldSource, q.SourceType)
	return nil
}

func (e *Engine) ProcessAnswer(ctx context.Context, a Answer) error {
	return e.completeCurrentStep(ctx, TriggerAnswer, false, a)
}

func (e *Engine) HandleSilenceTimeout(ctx context.Context, isNoAnswer bool) error {
	return e.completeCurrentStep(ctx, TriggerSilenceTimeout, isNoAnswer, Answer{})
}

func (e *Engine) HandleQuestionTimeout(ctx context.Context) error {
	return e.completeCurrentStep(ctx, TriggerQuestionTimeout, false, Answer{})
}

func (e *Engine) completeCurrentStep(ctx context.Context, trigger Trigger, noAnswer bool, a Answer) error {
	if e.state.Status != domain.StatusInProgress {
		return e.invalid("complete step")
	}
	now := e.now()
	rec := StepRecord{
		Step:             e.state.CurrentStep,
		Trigger:          trigger,
		NoAnswer:         noAnswer,
		AnswerDurationMS: a.Duration.Milliseconds(),
		AnswerText:       a.Text,
		CompletedAt:      now,
	}
	if e.state.CurrentQuestion != nil {
		rec.Question = e.state.CurrentQuestion.Clone()
	}
	e.state.QuestionHistory = append(e.state.QuestionHistory, rec)
	e.state.CompletedQuestionsCount++
	e.log.Infow("step completed",
		logger.FieldStep, rec.Step,
		logger.FieldTrigger, trigger,
		logger.FieldCompleted, e.state.CompletedQuestionsCount,
		"no_answer", noAnswer,
	)

	if e.state.CompletedQuestionsCount >= e.cfg.TotalQuestionLimit {
		return e.TerminateSession(ctx, ReasonMaxQuestionsReached)
	}
	if e.earlyExitAllowed() && e.state.EarlyExitSignaled {
		return e.TerminateSession(ctx, ReasonEarlyExitSignal)
	}

	e.state.CurrentStep++
	q := e.selectQuestion(ctx)
	e.state.CurrentQuestion = &q
	return e.commit(ctx)
}

func (e *Engine) earlyExitAllowed() bool {
	if !e.policy.RequiresMinQuestionsForEarlyExit() {
		return true
	}
	return e.state.CompletedQuestionsCount >= e.cfg.MinQuestionCount
}

// SignalEarlyExit records the evaluation signal. It takes effect when the
// current step completes.
func (e *Engine) SignalEarlyExit(ctx context.Context) error {
	if e.state.Status != domain.StatusInProgress {
		return e.invalid("signal early exit")
	}
	if !e.cfg.EarlyExitEnabled {
		return errors.WithStack(ErrEarlyExitDisabled)
	}
	if e.state.EarlyExitSignaled {
		return nil
	}
	e.state.EarlyExitSignaled = true
	return e.commit(ctx)
}

// TerminateSession completes the session and flushes it to cold storage.
// A completed session cannot be reopened, and neither can an interruption the
// policy does not allow to resume.
func (e *Engine) TerminateSession(ctx context.Context, reason TerminationReason) error {
	if e.state.Status.Terminal() {
		return e.invalid("terminate")
	}
	if e.state.Status == domain.StatusInterrupted && !e.policy.CanResumeFromInterruption() {
		return e.invalid("terminate")
	}
	from := e.state.Status
	now := e.now()
	e.state.Status = domain.StatusCompleted
	e.state.EndedAt = &now
	e.state.TerminationReason = reason
	if err := e.finalize(ctx, string(reason)); err != nil {
		return err
	}
	e.log.Infow("session completed", logger.FieldFrom, from, logger.FieldReason, reason,
		logger.FieldCompleted, e.state.CompletedQuestionsCount)
	return nil
}

// InterruptSession moves an IN_PROGRESS session to INTERRUPTED and flushes it
// to cold storage in every mode. Whether it can come back depends on the policy.
func (e *Engine) InterruptSession(ctx context.Context, reason string) error {
	if e.state.Status != domain.StatusInProgress {
		return e.invalid("interrupt")
	}
	now := e.now()
	e.state.Status = domain.StatusInterrupted
	e.state.InterruptionReason = reason
	if e.policy.ShouldTerminateOnInterruption() {
		e.state.EndedAt = &now
	}
	if err := e.finalize(ctx, reason); err != nil {
		return err
	}
	e.log.Infow("session interrupted", logger.FieldReason, reason,
		"final", e.policy.ShouldTerminateOnInterruption())
	return nil
}

// ResumeSession brings an INTERRUPTED session back to IN_PROGRESS when the
// policy allows it. A denied resume is not an error: the status stays as it
// was and callers must check it.
func (e *Engine) ResumeSession(ctx context.Context) error {
	if e.state.Status != domain.StatusInterrupted {
		e.log.Warnw("resume ignored", logger.FieldStatus, e.state.Status)
		return nil
	}
	if !e.policy.CanResumeFromInterruption() {
		e.log.Warnw("resume denied by policy")
		return nil
	}
	e.state.Status = domain.StatusInProgress
	e.state.InterruptionReason = ""
	if err := e.commit(ctx); err != nil {
		return err
	}
	if err := e.deps.History.UpdateInterviewStatus(ctx, e.state.SessionID, e.state.Status); err != nil {
		return errors.Wrap(err, "update cold status")
	}
	e.log.Infow("session resumed", logger.FieldStep, e.state.CurrentStep)
	return nil
}

func (e *Engine) commit(ctx context.Context) error {
	e.state.UpdatedAt = e.now()
	if err := e.deps.State.SaveState(ctx, e.state.SessionID, e.state.Clone()); err != nil {
		return errors.Wrapf(err, "save session %s", e.state.SessionID)
	}
	return nil
}

func (e *Engine) finalize(ctx context.Context, reason string) error {
	if err := e.commit(ctx); err != nil {
		return err
	}
	id := e.state.SessionID
	if err := e.deps.State.UpdateStatus(ctx, id, e.state.Status); err != nil {
		return errors.Wrap(err, "update hot status")
	}
	if err := e.deps.History.UpdateInterviewStatus(ctx, id, e.state.Status); err != nil {
		return errors.Wrap(err, "update cold status")
	}
	if err := e.deps.History.SaveInterviewResult(ctx, id, e.result(reason)); err != nil {
		return errors.Wrap(err, "save interview result")
	}
	return nil
}

func (e *Engine) result(reason string) Result {
	st := e.state.Clone()
	return Result{
		SessionID:          st.SessionID,
		JobID:              st.JobID,
		UserID:             st.UserID,
		Mode:               e.cfg.Mode,
		Status:             st.Status,
		Reason:             reason,
		CompletedQuestions: st.CompletedQuestionsCount,
		TotalQuestionLimit: e.cfg.TotalQuestionLimit,
		StartedAt:          st.StartedAt,
		EndedAt:            st.EndedAt,
		History:            st.QuestionHistory,
	}
}

func (e *Engine) invalid(op string) error {
	return errors.Wrapf(ErrInvalidTransition, "%s session %s in status %s", op, e.state.SessionID, e.state.Status)
}

// selectQuestion tries the generator, then the bank, then the emergency
// question. It never fails.
func (e *Engine) selectQuestion(ctx context.Context) domain.SessionQuestion {
	if q, ok := e.generate(ctx); ok {
		return q
	}
	if q, ok := e.fromBank(ctx); ok {
		return q
	}
	e.log.Warnw("using emergency question", logger.FieldStep, e.state.CurrentStep)
	return EmergencyQuestion()
}

func (e *Engine) generate(ctx context.Context) (q domain.SessionQuestion, ok bool) {
	if e.deps.Generator == nil {
		return q, false
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("question generator panicked", logger.FieldError, fmt.Sprint(r))
			q, ok = domain.SessionQuestion{}, false
		}
	}()
	prev := make([]domain.SessionQuestion, 0, len(e.state.QuestionHistory))
	for _, r := range e.state.QuestionHistory {
		prev = append(prev, r.Question.Clone())
	}
	res := e.deps.Generator.GenerateQuestion(ctx, GenerationRequest{
		SessionID:         e.state.SessionID,
		JobID:             e.state.JobID,
		JobRole:           e.cfg.JobRole,
		Mode:              e.cfg.Mode,
		Step:              e.state.CurrentStep,
		Tags:              slices.Clone(e.cfg.QuestionTags),
		PreviousQuestions: prev,
	})
	if !res.Success || strings.TrimSpace(res.Content) == "" {
		e.log.Infow("question generation failed", logger.FieldStep, e.state.CurrentStep, logger.FieldError, res.Error)
		return q, false
	}
	id := res.QuestionID
	if id == "" {
		id = fmt.Sprintf("gen-%s-%d", e.state.SessionID, e.state.CurrentStep)
	}
	return domain.NewSessionQuestion(id, strings.TrimSpace(res.Content), domain.SourceGenerated, res.Metadata), true
}

func (e *Engine) fromBank(ctx context.Context) (q domain.SessionQuestion, ok bool) {
	if e.deps.Bank == nil {
		return q, false
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("question bank panicked", logger.FieldError, fmt.Sprint(r))
			q, ok = domain.SessionQuestion{}, false
		}
	}()
	candidates, err := e.deps.Bank.GetCandidates(ctx, e.cfg.JobRole, e.cfg.QuestionTags)
	if err != nil {
		e.log.Warnw("question bank unavailable", logger.FieldError, err)
		return q, false
	}
	if len(candidates) == 0 {
		e.log.Infow("question bank has no candidates")
		return q, false
	}
	asked := e.state.AskedQuestionIDs()
	pick := candidates[0]
	for _, c := range candidates {
		if !slices.Contains(asked, c.ID) {
			pick = c
			break
		}
	}
	meta := map[string]string{}
	for k, v := range pick.SourceMetadata {
		meta[k] = v
	}
	if pick.Difficulty != "" {
		meta["difficulty"] = pick.Difficulty
	}
	return domain.NewSessionQuestion(pick.ID, pick.Content, domain.SourceStatic, meta), true
}
