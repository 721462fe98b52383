// Package interviewhubsdk is a minimal client for the InterviewHub session API.
package interviewhubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrSessionLocked matches responses for a session another call is
	// currently mutating. Retry later.
	ErrSessionLocked = errors.New("session locked")
	ErrNotFound      = errors.New("not found")
)

// Client is a minimal InterviewHub HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Question is the question a session is currently asking.
type Question struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Session is the candidate-side view of a session.
type Session struct {
	SessionID          string     `json:"session_id"`
	JobID              string     `json:"job_id"`
	Status             string     `json:"status"`
	CurrentStep        int        `json:"current_step"`
	CompletedQuestions int        `json:"completed_questions"`
	EarlyExitSignaled  bool       `json:"early_exit_signaled"`
	CurrentQuestion    *Question  `json:"current_question,omitempty"`
	TerminationReason  string     `json:"termination_reason,omitempty"`
	InterruptionReason string     `json:"interruption_reason,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
}

// Result is the candidate-side result; which fields are set depends on the
// job's result exposure.
type Result struct {
	SessionID          string           `json:"session_id"`
	Status             string           `json:"status"`
	Exposure           string           `json:"exposure"`
	CompletedQuestions *int             `json:"completed_questions,omitempty"`
	TotalQuestionLimit *int             `json:"total_question_limit,omitempty"`
	History            []map[string]any `json:"history,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Is lets errors.Is match ErrSessionLocked and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSessionLocked:
		return e.StatusCode == http.StatusConflict && e.Code == "session_locked"
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// StartSession starts a session for a published job as the authenticated user.
func (c *Client) StartSession(ctx context.Context, jobID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("jobs/%s/sessions", url.PathEscape(jobID)), map[string]any{}, &resp)
	return resp, err
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, ""), nil, &resp)
	return resp, err
}

// SubmitAnswer answers the current question. It returns ErrSessionLocked
// (matchable with errors.Is) when another call is changing the session.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, text string, duration time.Duration) (Session, error) {
	body := map[string]any{
		"text":        text,
		"duration_ms": duration.Milliseconds(),
	}
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "answer"), body, &resp)
	return resp, err
}

func (c *Client) QuestionTimeout(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "question-timeout"), nil, &resp)
	return resp, err
}

func (c *Client) SilenceTimeout(ctx context.Context, sessionID string, noAnswer bool) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "silence-timeout"), map[string]any{"no_answer": noAnswer}, &resp)
	return resp, err
}

func (c *Client) Interrupt(ctx context.Context, sessionID, reason string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "interrupt"), map[string]any{"reason": reason}, &resp)
	return resp, err
}

// Resume asks to resume an interrupted session. Check Status on the returned
// session: a resume the interview mode forbids is not an error.
func (c *Client) Resume(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "resume"), nil, &resp)
	return resp, err
}

func (c *Client) EarlyExit(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "early-exit"), nil, &resp)
	return resp, err
}

func (c *Client) Result(ctx context.Context, sessionID string) (Result, error) {
	var resp Result
	err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, "result"), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) sessionPath(sessionID, action string) string {
	p := "sessions/" + url.PathEscape(sessionID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
