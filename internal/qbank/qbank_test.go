package qbank_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/logger"
	"interviewhub/internal/memstore"
	"interviewhub/internal/qbank"
)

func newService(t *testing.T) *qbank.Service {
	t.Helper()
	s := qbank.NewService(memstore.NewQuestionStore(), logger.Nop())
	s.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateNormalizesInput(t *testing.T) {
	s := newService(t)
	q, err := s.Create(context.Background(), qbank.CreateOptions{
		Content: "  Describe a deadlock.  ",
		Tags:    []string{"Go", "go", " concurrency "},
		JobRole: " backend ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "Describe a deadlock.", q.Content)
	assert.Equal(t, []string{"go", "concurrency"}, q.Tags)
	assert.Equal(t, "backend", q.JobRole)
	assert.Equal(t, domain.QuestionActive, q.Status)

	_, err = s.Create(context.Background(), qbank.CreateOptions{Content: "   "})
	assert.Error(t, err)
}

func TestGetCandidatesFiltersRoleTagsAndStatus(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, o := range []qbank.CreateOptions{
		{ID: "generic", Content: "Tell me about yourself."},
		{ID: "backend-go", Content: "What is a goroutine?", JobRole: "Backend", Tags: []string{"go"}},
		{ID: "frontend", Content: "What is the virtual DOM?", JobRole: "frontend", Tags: []string{"react"}},
		{ID: "gone", Content: "Deleted question", Tags: []string{"go"}},
	} {
		_, err := s.Create(ctx, o)
		require.NoError(t, err)
	}
	_, err := s.MarkDeleted(ctx, "gone")
	require.NoError(t, err)

	ids := func(qs []domain.Question) []string {
		var out []string
		for _, q := range qs {
			out = append(out, q.ID)
		}
		return out
	}

	got, err := s.GetCandidates(ctx, "backend", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"generic", "backend-go"}, ids(got))

	got, err = s.GetCandidates(ctx, "backend", []string{"GO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"backend-go"}, ids(got))

	got, err = s.GetCandidates(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"generic", "backend-go", "frontend"}, ids(got))
}

func TestCandidatesAreCopies(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Create(ctx, qbank.CreateOptions{ID: "q1", Content: "Original", SourceMetadata: map[string]string{"src": "import"}})
	require.NoError(t, err)

	got, err := s.GetCandidates(ctx, "", nil)
	require.NoError(t, err)
	got[0].Content = "mutated"
	got[0].SourceMetadata["src"] = "mutated"

	q, err := s.GetQuestionByID(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "Original", q.Content)
	assert.Equal(t, "import", q.SourceMetadata["src"])
}

func TestEditAndSoftDelete(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Create(ctx, qbank.CreateOptions{ID: "q1", Content: "Original", Difficulty: "easy"})
	require.NoError(t, err)

	content, diff := "Edited", "hard"
	q, err := s.Edit(ctx, "q1", qbank.EditOptions{Content: &content, Difficulty: &diff})
	require.NoError(t, err)
	assert.Equal(t, "Edited", q.Content)
	assert.Equal(t, "hard", q.Difficulty)

	q, err = s.MarkDeleted(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionDeleted, q.Status)
	// Deleting twice is fine.
	_, err = s.MarkDeleted(ctx, "q1")
	require.NoError(t, err)

	active, err := s.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	audit, err := s.GetQuestionByID(ctx, "q1")
	require.NoError(t, err)
	require.NotNil(t, audit)
	assert.Equal(t, "Edited", audit.Content)
}

func TestUnknownQuestion(t *testing.T) {
	s := newService(t)
	q, err := s.GetQuestionByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = s.MarkDeleted(context.Background(), "nope")
	assert.True(t, errors.Is(err, qbank.ErrQuestionNotFound))
}
