package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/domain"
	"interviewhub/internal/pgstore"
	"interviewhub/internal/session"
)

func TestHistoryStore(t *testing.T) {
	dsn := os.Getenv("IMH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IMH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgstore.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, pgstore.Migrate(ctx, pool))
	require.NoError(t, pgstore.Migrate(ctx, pool))

	store := pgstore.NewHistoryStore(pool)
	id := "s-" + uuid.New().String()

	res, status, err := store.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, status)

	require.NoError(t, store.UpdateInterviewStatus(ctx, id, domain.StatusInterrupted))
	require.NoError(t, store.SaveInterviewResult(ctx, id, session.Result{
		SessionID: id, JobID: "job-1", Status: domain.StatusCompleted, Reason: "MAX_QUESTIONS_REACHED", CompletedQuestions: 3,
	}))
	res, status, err = store.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.StatusCompleted, status)
	assert.Equal(t, 3, res.CompletedQuestions)
	assert.Equal(t, "MAX_QUESTIONS_REACHED", res.Reason)
}
