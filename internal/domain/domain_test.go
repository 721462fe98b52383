package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionQuestionOwnsMetadata(t *testing.T) {
	meta := map[string]string{"model": "m1"}
	q := NewSessionQuestion("q1", "Tell me about Go", SourceGenerated, meta)
	meta["model"] = "changed"
	assert.Equal(t, "m1", q.SourceMetadata["model"])

	c := q.Clone()
	c.SourceMetadata["model"] = "other"
	assert.Equal(t, "m1", q.SourceMetadata["model"])
}

func TestQuestionMarkDeleted(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := Question{ID: "q1", Status: QuestionActive, UpdatedAt: created}
	deletedAt := created.Add(time.Hour)
	q.MarkDeleted(deletedAt)
	assert.False(t, q.Active())
	assert.Equal(t, deletedAt, q.UpdatedAt)

	q.MarkDeleted(deletedAt.Add(time.Hour))
	assert.Equal(t, deletedAt, q.UpdatedAt)
}

func TestQuestionHasTags(t *testing.T) {
	q := Question{Tags: []string{"go", "concurrency"}}
	assert.True(t, q.HasTags(nil))
	assert.True(t, q.HasTags([]string{"go"}))
	assert.False(t, q.HasTags([]string{"go", "rust"}))
}

func TestModeAndStatus(t *testing.T) {
	assert.True(t, ModeActual.Valid())
	assert.False(t, InterviewMode("EXAM").Valid())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusInterrupted.Terminal())
}
