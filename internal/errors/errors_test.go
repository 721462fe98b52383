package errors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"interviewhub/internal/errors"
)

var errSentinel = errors.New("sentinel")

func TestWrapPreservesIdentity(t *testing.T) {
	err := errors.Wrap(errSentinel, "load job")
	assert.True(t, errors.Is(err, errSentinel))
	assert.Equal(t, "load job: sentinel", err.Error())
}

func TestMarkMatchesReference(t *testing.T) {
	err := errors.Mark(errors.New("session s-1 is busy"), errSentinel)
	assert.True(t, errors.Is(err, errSentinel))
	assert.Equal(t, "session s-1 is busy", err.Error())
}

func TestHintsSurvive(t *testing.T) {
	err := errors.WithHint(errSentinel, "retry the request")
	assert.Equal(t, []string{"retry the request"}, errors.GetAllHints(err))
}
