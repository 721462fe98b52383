package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"interviewhub/internal/app"
	"interviewhub/internal/config"
	"interviewhub/internal/errors"
	"interviewhub/internal/logger"
	"interviewhub/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.OnInitialize(initConfig)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imh",
		Short: "InterviewHub CLI",
		Long: `InterviewHub runs policy-driven interview sessions.
- Job: a posting whose interview policy (mode, question limits, timeouts, early exit) is frozen once published.
- Question bank: reusable static questions; deleting one only hides it from new sessions.
- Session: one candidate's interview. ACTUAL sessions are strict, PRACTICE sessions can pause and resume.
- Hot storage keeps live session state (sqlite, memory or redis); cold storage keeps final results (sqlite or postgres).
- Event log: audit trail of job and session transitions, view with 'imh events'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addPersistentFlags(root)
	root.AddCommand(configCmd())
	root.AddCommand(jobCmd())
	root.AddCommand(questionCmd())
	root.AddCommand(sessionCmd())
	root.AddCommand(adminCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(serveCmd())
	return root
}

func initConfig() {
	viper.SetEnvPrefix("IMH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "local-admin", "actor recorded in the audit log")
	flags.String("hot", "", "hot state backend (sqlite, memory, redis); overrides config")
	flags.String("cold", "", "cold result backend (sqlite, postgres); overrides config")
	flags.String("redis-addr", "", "redis address; overrides config")
	flags.String("postgres-dsn", "", "postgres DSN; overrides config")
	flags.String("log-level", "", "log level; overrides config")
	for _, name := range []string{"workspace", "json", "actor-id", "hot", "cold", "redis-addr", "postgres-dsn", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// loadConfig reads interviewhub.yml from the workspace (defaults when absent)
// and applies flag and IMH_* env overrides.
func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	cfg.Storage.Workspace = workspace
	if v := viper.GetString("hot"); v != "" {
		cfg.Storage.Hot = v
	}
	if v := viper.GetString("cold"); v != "" {
		cfg.Storage.Cold = v
	}
	if v := viper.GetString("redis-addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("postgres-dsn"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()
	a, err := app.Open(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(service.WithActor(ctx, viper.GetString("actor-id")), a)
}

func printJSONOrTable(w io.Writer, v any) error {
	if viper.GetBool("json") {
		return printJSON(w, v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
