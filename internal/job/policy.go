package job

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"interviewhub/internal/domain"
)

// MinQuestionFloor is the system-wide lower bound for Policy.MinQuestionCount.
const MinQuestionFloor = 10

// Policy is the interview configuration embedded in a Job.
type Policy struct {
	Mode               domain.InterviewMode  `json:"mode" yaml:"mode"`
	TotalQuestionLimit int                   `json:"total_question_limit" yaml:"total_question_limit"`
	MinQuestionCount   int                   `json:"min_question_count" yaml:"min_question_count"`
	QuestionTimeoutSec int                   `json:"question_timeout_sec" yaml:"question_timeout_sec"`
	SilenceTimeoutSec  int                   `json:"silence_timeout_sec" yaml:"silence_timeout_sec"`
	EarlyExitEnabled   bool                  `json:"early_exit_enabled" yaml:"early_exit_enabled"`
	ResultExposure     domain.ResultExposure `json:"result_exposure" yaml:"result_exposure"`
	EvaluationWeights  map[string]float64    `json:"evaluation_weights,omitempty" yaml:"evaluation_weights"`
	Description        string                `json:"description,omitempty" yaml:"description"`
	Requirements       []string              `json:"requirements,omitempty" yaml:"requirements"`
	JobRole            string                `json:"job_role,omitempty" yaml:"job_role"`
	QuestionTags       []string              `json:"question_tags,omitempty" yaml:"question_tags"`
}

// DefaultPolicy returns the policy new jobs start from when none is given.
func DefaultPolicy() Policy {
	return Policy{
		Mode:               domain.ModeActual,
		TotalQuestionLimit: 15,
		MinQuestionCount:   MinQuestionFloor,
		QuestionTimeoutSec: 180,
		SilenceTimeoutSec:  20,
		EarlyExitEnabled:   true,
		ResultExposure:     domain.ExposureScoreOnly,
		EvaluationWeights: map[string]float64{
			"technical":     0.5,
			"communication": 0.3,
			"attitude":      0.2,
		},
	}
}

func (p Policy) Validate() error {
	if !p.Mode.Valid() {
		return policyError("mode", fmt.Sprintf("unknown interview mode %q", p.Mode))
	}
	if p.MinQuestionCount < MinQuestionFloor {
		return policyError("min_question_count", fmt.Sprintf("must be at least %d, got %d", MinQuestionFloor, p.MinQuestionCount))
	}
	if p.TotalQuestionLimit <= 0 {
		return policyError("total_question_limit", "must be positive")
	}
	if p.QuestionTimeoutSec <= 0 {
		return policyError("question_timeout_sec", "must be positive")
	}
	if p.SilenceTimeoutSec <= 0 {
		return policyError("silence_timeout_sec", "must be positive")
	}
	if p.ResultExposure != "" && !p.ResultExposure.Valid() {
		return policyError("result_exposure", fmt.Sprintf("unknown exposure %q", p.ResultExposure))
	}
	for k, w := range p.EvaluationWeights {
		if strings.TrimSpace(k) == "" {
			return policyError("evaluation_weights", "empty criterion name")
		}
		if w < 0 {
			return policyError("evaluation_weights", fmt.Sprintf("weight for %s is negative", k))
		}
	}
	return nil
}

func (p Policy) Clone() Policy {
	p.EvaluationWeights = maps.Clone(p.EvaluationWeights)
	p.Requirements = slices.Clone(p.Requirements)
	p.QuestionTags = slices.Clone(p.QuestionTags)
	return p
}

// SessionConfig is the point-in-time copy of a job policy a session runs under.
type SessionConfig struct {
	JobID              string                `json:"job_id"`
	Mode               domain.InterviewMode  `json:"mode"`
	TotalQuestionLimit int                   `json:"total_question_limit"`
	MinQuestionCount   int                   `json:"min_question_count"`
	QuestionTimeoutSec int                   `json:"question_timeout_sec"`
	SilenceTimeoutSec  int                   `json:"silence_timeout_sec"`
	EarlyExitEnabled   bool                  `json:"early_exit_enabled"`
	ResultExposure     domain.ResultExposure `json:"result_exposure"`
	JobRole            string                `json:"job_role,omitempty"`
	QuestionTags       []string              `json:"question_tags,omitempty"`
}

func (c SessionConfig) Clone() SessionConfig {
	c.QuestionTags = slices.Clone(c.QuestionTags)
	return c
}
