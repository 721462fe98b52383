package session

import (
	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
)

var ErrUnknownMode = errors.New("unknown interview mode")

// Policy answers what the engine may do for a given interview mode. Policies are
// stateless; the only implementations are ActualPolicy and PracticePolicy.
type Policy interface {
	Mode() domain.InterviewMode
	CanPause() bool
	CanResumeFromInterruption() bool
	CanRetryAnswer() bool
	RequiresMinQuestionsForEarlyExit() bool
	ShouldTerminateOnInterruption() bool
	// ResultExposureLevel returns what the candidate may see given the level
	// configured on the job.
	ResultExposureLevel(configured domain.ResultExposure) domain.ResultExposure

	sealed()
}

// ActualPolicy is the strict mode used for real interviews.
type ActualPolicy struct{}

func (ActualPolicy) Mode() domain.InterviewMode             { return domain.ModeActual }
func (ActualPolicy) CanPause() bool                         { return false }
func (ActualPolicy) CanResumeFromInterruption() bool        { return false }
func (ActualPolicy) CanRetryAnswer() bool                   { return false }
func (ActualPolicy) RequiresMinQuestionsForEarlyExit() bool { return true }
func (ActualPolicy) ShouldTerminateOnInterruption() bool    { return true }
func (ActualPolicy) sealed()                                {}

func (ActualPolicy) ResultExposureLevel(configured domain.ResultExposure) domain.ResultExposure {
	if !configured.Valid() {
		return domain.ExposureHidden
	}
	return configured
}

// PracticePolicy is the flexible mode: pausable, resumable, exit at any time.
type PracticePolicy struct{}

func (PracticePolicy) Mode() domain.InterviewMode             { return domain.ModePractice }
func (PracticePolicy) CanPause() bool                         { return true }
func (PracticePolicy) CanResumeFromInterruption() bool        { return true }
func (PracticePolicy) CanRetryAnswer() bool                   { return true }
func (PracticePolicy) RequiresMinQuestionsForEarlyExit() bool { return false }
func (PracticePolicy) ShouldTerminateOnInterruption() bool    { return false }
func (PracticePolicy) sealed()                                {}

func (PracticePolicy) ResultExposureLevel(domain.ResultExposure) domain.ResultExposure {
	return domain.ExposureFull
}

// PolicyFor maps a mode to its policy.
func PolicyFor(mode domain.InterviewMode) (Policy, error) {
	switch mode {
	case domain.ModeActual:
		return ActualPolicy{}, nil
	case domain.ModePractice:
		return PracticePolicy{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%q", mode)
	}
}
