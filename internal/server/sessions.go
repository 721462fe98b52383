package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"interviewhub/internal/app"
	"interviewhub/internal/domain"
	"interviewhub/internal/service"
	"interviewhub/internal/session"
)

type sessionPath struct {
	SessionID string `path:"session_id"`
}

type sessionOutput struct {
	Body SessionResponse `json:"body"`
}

func sessionOK(st session.State) *sessionOutput {
	return &sessionOutput{Body: sessionResponse(st)}
}

// authorizeSession lets admins through and restricts everyone else to the
// sessions they own.
func authorizeSession(ctx context.Context, a *app.App, sessionID string) (*session.State, huma.StatusError) {
	p, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return nil, authErr
	}
	st, err := a.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, handleError(err)
	}
	if st == nil {
		return nil, newAPIError(http.StatusNotFound, "not_found", "session not found", map[string]any{"session_id": sessionID})
	}
	if !p.IsAdmin() && st.UserID != "" && st.UserID != p.ActorID {
		return nil, newAPIError(http.StatusForbidden, "forbidden", "session belongs to another candidate", nil)
	}
	return st, nil
}

func registerSessions(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/jobs/{job_id}/sessions",
		Summary:       "Start an interview session for a published job",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		JobID string               `path:"job_id"`
		Body  CreateSessionRequest `json:"body" required:"false"`
	}) (*sessionOutput, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		userID := p.ActorID
		if requested := strings.TrimSpace(input.Body.UserID); requested != "" && requested != p.ActorID {
			if !p.IsAdmin() {
				return nil, newAPIError(http.StatusForbidden, "forbidden", "only admins may start sessions for other users", nil)
			}
			userID = requested
		}
		st, err := a.Sessions.CreateSessionFromJob(ctx, input.JobID, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return sessionOK(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}",
		Summary:     "Current session state",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
		st, authErr := authorizeSession(ctx, a, input.SessionID)
		if authErr != nil {
			return nil, authErr
		}
		return sessionOK(*st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-answer",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/answer",
		Summary:     "Answer the current question",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		SessionID string        `path:"session_id"`
		Body      AnswerRequest `json:"body"`
	}) (*sessionOutput, error) {
		if _, authErr := authorizeSession(ctx, a, input.SessionID); authErr != nil {
			return nil, authErr
		}
		st, err := a.Sessions.SubmitAnswer(ctx, input.SessionID, session.Answer{
			Text:     input.Body.Text,
			Duration: time.Duration(input.Body.DurationMS) * time.Millisecond,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return sessionOK(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "silence-timeout",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/silence-timeout",
		Summary:     "Report that the candidate stayed silent",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		SessionID string                `path:"session_id"`
		Body      SilenceTimeoutRequest `json:"body"`
	}) (*sessionOutput, error) {
		if _, authErr := authorizeSession(ctx, a, input.SessionID); authErr != nil {
			return nil, authErr
		}
		st, err := a.Sessions.HandleSilenceTimeout(ctx, input.SessionID, input.Body.NoAnswer)
		if err != nil {
			return nil, handleError(err)
		}
		return sessionOK(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "interrupt-session",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/interrupt",
		Summary:     "Interrupt the session",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		SessionID string           `path:"session_id"`
		Body      InterruptRequest `json:"body"`
	}) (*sessionOutput, error) {
		if _, authErr := authorizeSession(ctx, a, input.SessionID); authErr != nil {
			return nil, authErr
		}
		st, err := a.Sessions.InterruptSession(ctx, input.SessionID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return sessionOK(st), nil
	})

	for _, op := range []struct {
		id, path, summary string
		fn                func(context.Context, string) (session.State, error)
	}{
		{"question-timeout", "question-timeout", "Report that the question time ran out", a.Sessions.HandleQuestionTimeout},
		{"resume-session", "resume", "Resume an interrupted session", a.Sessions.ResumeSession},
		{"early-exit", "early-exit", "Ask to finish the interview early", a.Sessions.SignalEarlyExit},
	} {
		fn := op.fn
		huma.Register(api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        "/sessions/{session_id}/" + op.path,
			Summary:     op.summary,
			Errors: []int{
				http.StatusForbidden,
				http.StatusNotFound,
				http.StatusConflict,
			},
		}, func(ctx context.Context, input *sessionPath) (*sessionOutput, error) {
			if _, authErr := authorizeSession(ctx, a, input.SessionID); authErr != nil {
				return nil, authErr
			}
			st, err := fn(ctx, input.SessionID)
			if err != nil {
				return nil, handleError(err)
			}
			return sessionOK(st), nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-session-result",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/result",
		Summary:     "Result as exposed to the candidate",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body CandidateResultResponse `json:"body"`
	}, error) {
		st, authErr := authorizeSession(ctx, a, input.SessionID)
		if authErr != nil {
			return nil, authErr
		}
		res, coldStatus, err := a.Results.GetResult(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		// A resumed session keeps the result flushed at interruption until it
		// ends again.
		if res == nil || !resultFinal(coldStatus) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "result not available yet", map[string]any{"status": st.Status})
		}
		j, err := a.Jobs.Get(ctx, st.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		policy := j.Policy()
		pol, err := session.PolicyFor(policy.Mode)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CandidateResultResponse `json:"body"`
		}{Body: exposeResult(*res, coldStatus, pol.ResultExposureLevel(policy.ResultExposure))}, nil
	})
}

func resultFinal(status domain.SessionStatus) bool {
	switch status {
	case domain.StatusCompleted, domain.StatusInterrupted, domain.StatusEvaluated:
		return true
	}
	return false
}

func exposeResult(res session.Result, status domain.SessionStatus, level domain.ResultExposure) CandidateResultResponse {
	out := CandidateResultResponse{
		SessionID: res.SessionID,
		Status:    string(status),
		Exposure:  string(level),
	}
	switch level {
	case domain.ExposureFull:
		out.History = res.History
		fallthrough
	case domain.ExposureScoreOnly:
		completed, total := res.CompletedQuestions, res.TotalQuestionLimit
		out.CompletedQuestions, out.TotalQuestionLimit = &completed, &total
	}
	return out
}

func registerAdmin(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-list-job-sessions",
		Method:      http.MethodGet,
		Path:        "/admin/jobs/{job_id}/sessions",
		Summary:     "List sessions of a job",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		JobID  string `path:"job_id"`
		Status string `query:"status" enum:"APPLIED,IN_PROGRESS,COMPLETED,INTERRUPTED,EVALUATED"`
	}) (*struct {
		Body []service.SessionView `json:"body"`
	}, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		views, err := a.Admin.ListByJob(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		out := []service.SessionView{}
		for _, v := range views {
			if input.Status != "" && string(v.Status) != input.Status {
				continue
			}
			out = append(out, v)
		}
		return &struct {
			Body []service.SessionView `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-get-session",
		Method:      http.MethodGet,
		Path:        "/admin/sessions/{session_id}",
		Summary:     "Full session view with step history",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body service.SessionView `json:"body"`
	}, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		v, err := a.Admin.Get(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		if v == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "session not found", map[string]any{"session_id": input.SessionID})
		}
		return &struct {
			Body service.SessionView `json:"body"`
		}{Body: *v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-get-result",
		Method:      http.MethodGet,
		Path:        "/admin/sessions/{session_id}/result",
		Summary:     "Cold-storage result",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body ResultResponse `json:"body"`
	}, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		res, status, err := a.Results.GetResult(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		if res == nil && status == "" {
			return nil, newAPIError(http.StatusNotFound, "not_found", "no result recorded", map[string]any{"session_id": input.SessionID})
		}
		return &struct {
			Body ResultResponse `json:"body"`
		}{Body: ResultResponse{ColdStatus: string(status), Result: res}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-terminate-session",
		Method:      http.MethodPost,
		Path:        "/admin/sessions/{session_id}/terminate",
		Summary:     "Terminate a session",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body service.SessionView `json:"body"`
	}, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		st, err := a.Sessions.TerminateSession(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.SessionView `json:"body"`
		}{Body: service.NewSessionView(st)}, nil
	})
}
