package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
)

func TestPolicyFor(t *testing.T) {
	p, err := PolicyFor(domain.ModeActual)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeActual, p.Mode())

	p, err = PolicyFor(domain.ModePractice)
	require.NoError(t, err)
	assert.Equal(t, domain.ModePractice, p.Mode())

	_, err = PolicyFor("EXAM")
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestPolicyCapabilities(t *testing.T) {
	tests := []struct {
		policy      Policy
		pause       bool
		resume      bool
		retry       bool
		minForExit  bool
		terminateOn bool
	}{
		{ActualPolicy{}, false, false, false, true, true},
		{PracticePolicy{}, true, true, true, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy.Mode()), func(t *testing.T) {
			assert.Equal(t, tt.pause, tt.policy.CanPause())
			assert.Equal(t, tt.resume, tt.policy.CanResumeFromInterruption())
			assert.Equal(t, tt.retry, tt.policy.CanRetryAnswer())
			assert.Equal(t, tt.minForExit, tt.policy.RequiresMinQuestionsForEarlyExit())
			assert.Equal(t, tt.terminateOn, tt.policy.ShouldTerminateOnInterruption())
		})
	}
}

func TestResultExposure(t *testing.T) {
	assert.Equal(t, domain.ExposureScoreOnly, ActualPolicy{}.ResultExposureLevel(domain.ExposureScoreOnly))
	assert.Equal(t, domain.ExposureHidden, ActualPolicy{}.ResultExposureLevel(""))
	assert.Equal(t, domain.ExposureFull, PracticePolicy{}.ResultExposureLevel(domain.ExposureHidden))
}

func TestStateCloneIsDeep(t *testing.T) {
	q := domain.NewSessionQuestion("q1", "content", domain.SourceStatic, map[string]string{"k": "v"})
	st := State{SessionID: "s1", CurrentQuestion: &q, QuestionHistory: []StepRecord{{Step: 1, Question: q.Clone()}}}
	c := st.Clone()
	c.CurrentQuestion.Content = "changed"
	c.CurrentQuestion.SourceMetadata["k"] = "x"
	c.QuestionHistory[0].Question.SourceMetadata["k"] = "y"
	assert.Equal(t, "content", st.CurrentQuestion.Content)
	assert.Equal(t, "v", st.CurrentQuestion.SourceMetadata["k"])
	assert.Equal(t, "v", st.QuestionHistory[0].Question.SourceMetadata["k"])
	assert.Equal(t, []string{"q1", "q1"}, st.AskedQuestionIDs())
}
