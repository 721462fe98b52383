package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"interviewhub/internal/app"
	"interviewhub/internal/errors"
	"interviewhub/internal/service"
	"interviewhub/internal/session"
)

func sessionCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "session",
		Short: "Drive interview sessions",
		Long:  "Each command loads the session, applies one step under the session lock and prints the new state. A busy session fails right away instead of waiting.",
	}
	s.AddCommand(sessionStartCmd())
	s.AddCommand(sessionAnswerCmd())
	s.AddCommand(sessionTimeoutCmd())
	s.AddCommand(sessionInterruptCmd())
	s.AddCommand(sessionOpCmd("resume", "Resume an interrupted session", (*service.SessionService).ResumeSession))
	s.AddCommand(sessionOpCmd("early-exit", "Signal early exit; applied when the current step completes", (*service.SessionService).SignalEarlyExit))
	s.AddCommand(sessionOpCmd("terminate", "Terminate a session (operator action)", (*service.SessionService).TerminateSession))
	s.AddCommand(sessionShowCmd())
	s.AddCommand(sessionResultCmd())
	return s
}

func printSession(cmd *cobra.Command, st session.State) error {
	return printJSONOrTable(cmd.OutOrStdout(), service.NewSessionView(st))
}

func sessionStartCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "start <job-id>",
		Short: "Start a session for a published job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Sessions.CreateSessionFromJob(ctx, args[0], userID)
				if err != nil {
					return err
				}
				return printSession(cmd, st)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "candidate user id")
	return cmd
}

func sessionAnswerCmd() *cobra.Command {
	var text string
	var durationMS int64
	cmd := &cobra.Command{
		Use:   "answer <session-id>",
		Short: "Answer the current question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Sessions.SubmitAnswer(ctx, args[0], session.Answer{
					Text:     text,
					Duration: time.Duration(durationMS) * time.Millisecond,
				})
				if err != nil {
					return err
				}
				return printSession(cmd, st)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "answer text")
	cmd.Flags().Int64Var(&durationMS, "duration-ms", 0, "answer duration in milliseconds")
	return cmd
}

func sessionTimeoutCmd() *cobra.Command {
	var kind string
	var noAnswer bool
	cmd := &cobra.Command{
		Use:   "timeout <session-id>",
		Short: "Report a question or silence timeout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var (
					st  session.State
					err error
				)
				switch kind {
				case "question":
					st, err = a.Sessions.HandleQuestionTimeout(ctx, args[0])
				case "silence":
					st, err = a.Sessions.HandleSilenceTimeout(ctx, args[0], noAnswer)
				default:
					return errors.Newf("unknown timeout kind %q (want question or silence)", kind)
				}
				if err != nil {
					return err
				}
				return printSession(cmd, st)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "question", "timeout kind (question, silence)")
	cmd.Flags().BoolVar(&noAnswer, "no-answer", false, "silence timeout with no answer at all")
	return cmd
}

func sessionInterruptCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "interrupt <session-id>",
		Short: "Interrupt a running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Sessions.InterruptSession(ctx, args[0], reason)
				if err != nil {
					return err
				}
				return printSession(cmd, st)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "interruption reason")
	return cmd
}

func sessionOpCmd(use, short string, fn func(*service.SessionService, context.Context, string) (session.State, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := fn(a.Sessions, ctx, args[0])
				if err != nil {
					return err
				}
				return printSession(cmd, st)
			})
		},
	}
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the full session view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				v, err := a.Admin.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if v == nil {
					return errors.Wrapf(service.ErrNotFound, "session %s", args[0])
				}
				return printJSONOrTable(cmd.OutOrStdout(), v)
			})
		},
	}
}

func sessionResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <session-id>",
		Short: "Show the result stored in cold storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, status, err := a.Results.GetResult(ctx, args[0])
				if err != nil {
					return err
				}
				if res == nil && status == "" {
					return errors.WithHint(errors.Newf("no result recorded for session %s", args[0]),
						"results are written when a session completes or is interrupted")
				}
				return printJSONOrTable(cmd.OutOrStdout(), map[string]any{"cold_status": status, "result": res})
			})
		},
	}
}

func adminCmd() *cobra.Command {
	adm := &cobra.Command{Use: "admin", Short: "Operator views"}
	adm.AddCommand(adminSessionsCmd())
	return adm
}

func adminSessionsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "sessions <job-id>",
		Short: "List the sessions of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				views, err := a.Admin.ListByJob(ctx, args[0])
				if err != nil {
					return err
				}
				items := []service.SessionView{}
				for _, v := range views {
					if status == "" || string(v.Status) == status {
						items = append(items, v)
					}
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Session", "User", "Status", "Step", "Completed", "Question", "Source", "Reason"})
				for _, v := range items {
					question, source := "", ""
					if v.CurrentQuestion != nil {
						question, source = v.CurrentQuestion.ID, string(v.CurrentQuestion.Source)
					}
					reason := v.TerminationReason
					if reason == "" {
						reason = v.InterruptionReason
					}
					tw.AppendRow(table.Row{v.SessionID, v.UserID, v.Status, v.CurrentStep,
						fmt.Sprint(v.CompletedQuestions), question, source, reason})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}
