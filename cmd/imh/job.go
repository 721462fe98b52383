package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"interviewhub/internal/app"
	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/job"
	"interviewhub/internal/service"
)

func jobCmd() *cobra.Command {
	j := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
		Long:  "A job carries the interview policy. Edit the policy while the job is DRAFT; publishing freezes it and opens the job for sessions.",
	}
	j.AddCommand(jobCreateCmd())
	j.AddCommand(jobShowCmd())
	j.AddCommand(jobListCmd())
	j.AddCommand(jobPolicyCmd())
	j.AddCommand(jobMetaCmd())
	j.AddCommand(jobTransitionCmd("publish", "Publish a draft job", (*service.JobService).Publish))
	j.AddCommand(jobTransitionCmd("close", "Close a published job", (*service.JobService).Close))
	return j
}

// policyFlags overlays command-line values on a base policy. Only flags that
// were set take effect.
type policyFlags struct {
	file            string
	mode            string
	exposure        string
	role            string
	total           int
	min             int
	questionTimeout int
	silenceTimeout  int
	earlyExit       bool
	tags            []string
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "policy-file", "", "YAML file with the policy")
	cmd.Flags().StringVar(&f.mode, "mode", "", "interview mode (ACTUAL, PRACTICE)")
	cmd.Flags().StringVar(&f.exposure, "exposure", "", "result exposure (FULL, SCORE_ONLY, HIDDEN)")
	cmd.Flags().StringVar(&f.role, "role", "", "job role used to pick bank questions")
	cmd.Flags().IntVar(&f.total, "total", 0, "total question limit")
	cmd.Flags().IntVar(&f.min, "min", 0, "minimum questions before early exit")
	cmd.Flags().IntVar(&f.questionTimeout, "question-timeout", 0, "question timeout in seconds")
	cmd.Flags().IntVar(&f.silenceTimeout, "silence-timeout", 0, "silence timeout in seconds")
	cmd.Flags().BoolVar(&f.earlyExit, "early-exit", true, "allow early exit")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "question tags to prefer")
}

func (f *policyFlags) apply(cmd *cobra.Command, base job.Policy) (job.Policy, error) {
	p := base.Clone()
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return job.Policy{}, errors.Wrapf(err, "read policy file %s", f.file)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return job.Policy{}, errors.Wrapf(err, "parse policy file %s", f.file)
		}
	}
	changed := cmd.Flags().Changed
	if changed("mode") {
		p.Mode = domain.InterviewMode(strings.ToUpper(f.mode))
	}
	if changed("exposure") {
		p.ResultExposure = domain.ResultExposure(strings.ToUpper(f.exposure))
	}
	if changed("role") {
		p.JobRole = f.role
	}
	if changed("total") {
		p.TotalQuestionLimit = f.total
	}
	if changed("min") {
		p.MinQuestionCount = f.min
	}
	if changed("question-timeout") {
		p.QuestionTimeoutSec = f.questionTimeout
	}
	if changed("silence-timeout") {
		p.SilenceTimeoutSec = f.silenceTimeout
	}
	if changed("early-exit") {
		p.EarlyExitEnabled = f.earlyExit
	}
	if changed("tags") {
		p.QuestionTags = f.tags
	}
	return p, nil
}

func jobCreateCmd() *cobra.Command {
	var id, title string
	var meta map[string]string
	var pf policyFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft job from the configured policy defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				policy, err := pf.apply(cmd, a.Config.PolicyDefaults)
				if err != nil {
					return err
				}
				j, err := a.Jobs.Create(ctx, service.JobCreateOptions{ID: id, Title: title, Policy: policy, Metadata: meta})
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), j.Snapshot())
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "job id (generated when empty)")
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringToStringVar(&meta, "meta", nil, "metadata key=value pairs")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func jobShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				j, err := a.Jobs.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), j.Snapshot())
			})
		},
	}
}

func jobListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				jobs, err := a.Jobs.List(ctx)
				if err != nil {
					return err
				}
				items := []job.Snapshot{}
				for _, j := range jobs {
					if status != "" && !strings.EqualFold(string(j.Status()), status) {
						continue
					}
					items = append(items, j.Snapshot())
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Mode", "Questions", "Early exit"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Title, s.Status, s.Policy.Mode,
						fmt.Sprintf("%d-%d", s.Policy.MinQuestionCount, s.Policy.TotalQuestionLimit), s.Policy.EarlyExitEnabled})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (DRAFT, PUBLISHED, CLOSED)")
	return cmd
}

func jobPolicyCmd() *cobra.Command {
	var pf policyFlags
	cmd := &cobra.Command{
		Use:   "policy <job-id>",
		Short: "Change the policy of a draft job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				current, err := a.Jobs.Get(ctx, args[0])
				if err != nil {
					return err
				}
				policy, err := pf.apply(cmd, current.Policy())
				if err != nil {
					return err
				}
				j, err := a.Jobs.UpdatePolicy(ctx, args[0], policy)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), j.Snapshot())
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func jobMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <job-id> key=value...",
		Short: "Merge metadata; an empty value removes the key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := map[string]string{}
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || strings.TrimSpace(k) == "" {
					return errors.Newf("invalid metadata %q, want key=value", kv)
				}
				updates[strings.TrimSpace(k)] = v
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				j, err := a.Jobs.UpdateMetadata(ctx, args[0], updates)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), j.Snapshot())
			})
		},
	}
}

func jobTransitionCmd(use, short string, fn func(*service.JobService, context.Context, string) (*job.Job, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				j, err := fn(a.Jobs, ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), j.Snapshot())
			})
		},
	}
}
