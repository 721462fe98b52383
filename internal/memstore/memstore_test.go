package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/domain"
	"interviewhub/internal/session"
)

func TestStateStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStateStore()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	st := session.NewState("s-1", "job-1", "u-1", t0)
	q := domain.NewSessionQuestion("q-1", "Why Go?", domain.SourceStatic, map[string]string{"k": "v"})
	st.CurrentQuestion = &q
	require.NoError(t, s.SaveState(ctx, "s-1", st))

	st.CurrentQuestion.SourceMetadata["k"] = "changed"
	got, err := s.GetState(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v", got.CurrentQuestion.SourceMetadata["k"])

	got.Status = domain.StatusCompleted
	again, _ := s.GetState(ctx, "s-1")
	assert.Equal(t, domain.StatusApplied, again.Status)

	missing, err := s.GetState(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Error(t, s.UpdateStatus(ctx, "nope", domain.StatusCompleted))
}

func TestFindByJobIDOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	s := NewStateStore()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveState(ctx, "b", session.NewState("b", "job-1", "", t0.Add(time.Minute))))
	require.NoError(t, s.SaveState(ctx, "a", session.NewState("a", "job-1", "", t0)))
	require.NoError(t, s.SaveState(ctx, "c", session.NewState("c", "job-2", "", t0)))

	got, err := s.FindByJobID(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].SessionID)
	assert.Equal(t, "b", got[1].SessionID)
}

func TestEventLog(t *testing.T) {
	var l EventLog
	l.Now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, l.Append(context.Background(), "session.create", "session", "s-1", "u-1", map[string]any{"job_id": "job-1"}))

	events := l.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, "2024-03-01T09:00:00Z", events[0].TS)
	assert.JSONEq(t, `{"job_id":"job-1"}`, events[0].Payload)
}
