package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/config"
	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/service"
)

func run(t *testing.T, workspace string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--workspace", workspace, "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, workspace string, args ...string) string {
	t.Helper()
	out, err := run(t, workspace, args...)
	require.NoError(t, err, out)
	return out
}

func decodeView(t *testing.T, out string) service.SessionView {
	t.Helper()
	var v service.SessionView
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestConfigInit(t *testing.T) {
	ws := t.TempDir()
	mustRun(t, ws, "config", "init")
	_, err := os.Stat(config.Path(ws))
	require.NoError(t, err)

	_, err = run(t, ws, "config", "init")
	assert.Error(t, err)
	mustRun(t, ws, "config", "init", "--force")
	assert.Contains(t, mustRun(t, ws, "config", "validate"), "config OK")
}

func TestInterviewThroughCLI(t *testing.T) {
	ws := t.TempDir()
	mustRun(t, ws, "config", "init")
	mustRun(t, ws, "question", "add", "--id", "q-1", "--content", "Explain a tradeoff you made recently.", "--tags", "design")
	mustRun(t, ws, "question", "add", "--id", "q-2", "--content", "How do you review code?")

	var snap job.Snapshot
	out := mustRun(t, ws, "--json", "job", "create", "--id", "job-1", "--title", "SRE", "--mode", "practice", "--total", "2")
	require.NoError(t, json.Unmarshal([]byte(out), &snap), out)
	assert.Equal(t, domain.ModePractice, snap.Policy.Mode)
	assert.Equal(t, 2, snap.Policy.TotalQuestionLimit)
	assert.Equal(t, 10, snap.Policy.MinQuestionCount)

	_, err := run(t, ws, "session", "start", "job-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, job.ErrJobState), err)

	mustRun(t, ws, "job", "publish", "job-1")
	_, err = run(t, ws, "job", "policy", "job-1", "--total", "5")
	assert.True(t, errors.Is(err, job.ErrPolicyValidation), err)

	view := decodeView(t, mustRun(t, ws, "--json", "session", "start", "job-1", "--user", "u-1"))
	require.NotNil(t, view.CurrentQuestion)
	assert.Equal(t, "q-1", view.CurrentQuestion.ID)
	id := view.SessionID

	view = decodeView(t, mustRun(t, ws, "--json", "session", "answer", id, "--text", "We cached reads.", "--duration-ms", "2500"))
	assert.Equal(t, 1, view.CompletedQuestions)
	require.NotNil(t, view.CurrentQuestion)
	assert.Equal(t, "q-2", view.CurrentQuestion.ID)

	view = decodeView(t, mustRun(t, ws, "--json", "session", "timeout", id, "--kind", "silence", "--no-answer"))
	assert.Equal(t, domain.StatusCompleted, view.Status)

	var result struct {
		ColdStatus domain.SessionStatus `json:"cold_status"`
	}
	out = mustRun(t, ws, "--json", "session", "result", id)
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Equal(t, domain.StatusCompleted, result.ColdStatus)

	table := mustRun(t, ws, "admin", "sessions", "job-1")
	assert.Contains(t, table, id)
	assert.Contains(t, table, "u-1")

	var events []domain.Event
	out = mustRun(t, ws, "--json", "events", "--entity-kind", "session", "--n", "10")
	require.NoError(t, json.Unmarshal([]byte(out), &events), out)
	require.Len(t, events, 3)
	assert.Equal(t, "session.silence_timeout", events[0].Type)
	assert.Equal(t, "local-admin", events[0].ActorID)
}
