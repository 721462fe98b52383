package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/app"
	"interviewhub/internal/config"
	"interviewhub/internal/domain"
	"interviewhub/internal/job"
	"interviewhub/internal/logger"
	"interviewhub/internal/qbank"
	"interviewhub/internal/service"
	"interviewhub/internal/session"
)

func TestOpenWiresBackends(t *testing.T) {
	for _, hot := range []string{config.HotSQLite, config.HotMemory} {
		t.Run(hot, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Workspace = t.TempDir()
			cfg.Storage.Hot = hot
			a, err := app.Open(context.Background(), cfg, logger.Nop(), app.Options{})
			require.NoError(t, err)
			defer a.Close()

			ctx := context.Background()
			_, err = a.Bank.Create(ctx, qbank.CreateOptions{ID: "q1", Content: "Tell me about a hard bug."})
			require.NoError(t, err)
			_, err = a.Jobs.Create(ctx, service.JobCreateOptions{ID: "job-1", Title: "Engineer", Policy: job.DefaultPolicy()})
			require.NoError(t, err)
			_, err = a.Jobs.Publish(ctx, "job-1")
			require.NoError(t, err)

			st, err := a.Sessions.CreateSessionFromJob(ctx, "job-1", "u-1")
			require.NoError(t, err)
			assert.Equal(t, "q1", st.CurrentQuestion.ID)

			st, err = a.Sessions.InterruptSession(ctx, st.SessionID, "left")
			require.NoError(t, err)
			res, status, err := a.Results.GetResult(ctx, st.SessionID)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, domain.StatusInterrupted, status)

			views, err := a.Admin.ListByJob(ctx, "job-1")
			require.NoError(t, err)
			require.Len(t, views, 1)
			assert.Equal(t, domain.StatusInterrupted, views[0].Status)
		})
	}
}

func TestOpenUsesGenerator(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Workspace = t.TempDir()
	gen := session.GeneratorFunc(func(context.Context, session.GenerationRequest) session.GenerationResult {
		return session.GenerationResult{QuestionID: "g1", Content: "Generated?", Success: true}
	})
	a, err := app.Open(context.Background(), cfg, nil, app.Options{Generator: gen})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	_, err = a.Jobs.Create(ctx, service.JobCreateOptions{ID: "job-1", Title: "Engineer", Policy: job.DefaultPolicy()})
	require.NoError(t, err)
	_, err = a.Jobs.Publish(ctx, "job-1")
	require.NoError(t, err)
	st, err := a.Sessions.CreateSessionFromJob(ctx, "job-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGenerated, st.CurrentQuestion.SourceType)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Workspace = t.TempDir()
	cfg.Storage.Hot = "etcd"
	_, err := app.Open(context.Background(), cfg, nil, app.Options{})
	assert.Error(t, err)
}
