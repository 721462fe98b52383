package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/logger"
	"interviewhub/internal/redisstore"
	"interviewhub/internal/service"
	"interviewhub/internal/session"
)

func testPrefix(t *testing.T) (string, string) {
	t.Helper()
	addr := os.Getenv("IMH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IMH_TEST_REDIS_ADDR not set")
	}
	return addr, "imhtest:" + uuid.New().String()[:8] + ":"
}

func TestStateStore(t *testing.T) {
	addr, prefix := testPrefix(t)
	ctx := context.Background()
	client, err := redisstore.New(ctx, redisstore.Options{Addr: addr})
	require.NoError(t, err)
	defer client.Close()
	store := redisstore.NewStateStore(client, prefix)

	got, err := store.GetState(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveState(ctx, "s-2", session.NewState("s-2", "job-1", "", t0.Add(time.Second))))
	require.NoError(t, store.SaveState(ctx, "s-1", session.NewState("s-1", "job-1", "", t0)))

	require.NoError(t, store.UpdateStatus(ctx, "s-1", domain.StatusInterrupted))
	got, err = store.GetState(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusInterrupted, got.Status)

	list, err := store.FindByJobID(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s-1", list[0].SessionID)
	assert.Equal(t, "s-2", list[1].SessionID)
}

func TestLockerFailsFast(t *testing.T) {
	addr, prefix := testPrefix(t)
	ctx := context.Background()
	client, err := redisstore.New(ctx, redisstore.Options{Addr: addr})
	require.NoError(t, err)
	defer client.Close()
	locks := redisstore.NewLocker(client, prefix, time.Minute, logger.Nop())

	release, err := locks.TryAcquire(ctx, "s-1")
	require.NoError(t, err)
	_, err = locks.TryAcquire(ctx, "s-1")
	assert.True(t, errors.Is(err, service.ErrSessionLocked))

	other, err := locks.TryAcquire(ctx, "s-2")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := locks.TryAcquire(ctx, "s-1")
	require.NoError(t, err)
	again()
}
