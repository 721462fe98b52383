package main

import (
	"context"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"interviewhub/internal/app"
	"interviewhub/internal/qbank"
)

func questionCmd() *cobra.Command {
	q := &cobra.Command{
		Use:     "question",
		Aliases: []string{"q"},
		Short:   "Manage the question bank",
		Long:    "Bank questions are the fallback when no generator is configured. Deleting a question hides it from new sessions but keeps it readable.",
	}
	q.AddCommand(questionAddCmd())
	q.AddCommand(questionListCmd())
	q.AddCommand(questionEditCmd())
	q.AddCommand(questionDeleteCmd())
	return q
}

func questionAddCmd() *cobra.Command {
	var opts qbank.CreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				q, err := a.Bank.Create(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), q)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "question id (generated when empty)")
	cmd.Flags().StringVar(&opts.Content, "content", "", "question text")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "tags")
	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "", "difficulty label")
	cmd.Flags().StringVar(&opts.JobRole, "role", "", "job role; empty matches every role")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func questionListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Bank.List(ctx, all)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Status", "Role", "Tags", "Content"})
				for _, q := range items {
					tw.AppendRow(table.Row{q.ID, q.Status, q.JobRole, strings.Join(q.Tags, ","), truncate(q.Content, 60)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include deleted questions")
	return cmd
}

func questionEditCmd() *cobra.Command {
	var content, difficulty, role string
	var tags []string
	cmd := &cobra.Command{
		Use:   "edit <question-id>",
		Short: "Edit a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts qbank.EditOptions
			if cmd.Flags().Changed("content") {
				opts.Content = &content
			}
			if cmd.Flags().Changed("difficulty") {
				opts.Difficulty = &difficulty
			}
			if cmd.Flags().Changed("role") {
				opts.JobRole = &role
			}
			if cmd.Flags().Changed("tags") {
				opts.Tags = tags
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				q, err := a.Bank.Edit(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), q)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "question text")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "difficulty label")
	cmd.Flags().StringVar(&role, "role", "", "job role")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags (replaces the current set)")
	return cmd
}

func questionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <question-id>",
		Short: "Soft delete a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				q, err := a.Bank.MarkDeleted(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), q)
			})
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
