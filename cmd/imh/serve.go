package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"interviewhub/internal/app"
	"interviewhub/internal/config"
	"interviewhub/internal/errors"
	"interviewhub/internal/logger"
	"interviewhub/internal/repo"
	"interviewhub/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				srvCfg := a.Config.Server
				if cmd.Flags().Changed("addr") || srvCfg.Addr == "" {
					srvCfg.Addr = addr
				}
				if cmd.Flags().Changed("base-path") || srvCfg.BasePath == "" {
					srvCfg.BasePath = basePath
				}
				if srvCfg.JWTSecret == "" && !srvCfg.AllowActorHeader {
					return errors.WithHint(errors.New("no authentication configured"),
						"set IMH_JWT_SECRET or server.allow_actor_header in interviewhub.yml")
				}
				handler, err := server.New(server.Config{
					App:      a,
					BasePath: srvCfg.BasePath,
					Auth: server.AuthConfig{
						JWTSecret:              srvCfg.JWTSecret,
						AllowLegacyActorHeader: srvCfg.AllowActorHeader,
						Logger:                 a.Log,
					},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: srvCfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Log.Infow("serving", logger.FieldAddress, srvCfg.Addr, "base_path", srvCfg.BasePath)
				fmt.Fprintf(cmd.OutOrStdout(), "Serving InterviewHub API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
					srvCfg.Addr, srvCfg.BasePath, srvCfg.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage interviewhub.yml",
		Long:  "interviewhub.yml picks the storage backends, the HTTP server settings and the policy template new jobs start from. Flags and IMH_* variables override it.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default interviewhub.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.WithHint(errors.Newf("%s already exists", path), "use --force to overwrite")
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cmd.OutOrStdout(), cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	}
}

func eventsCmd() *cobra.Command {
	var f repo.EventFilter
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the latest audit events",
		Long:  "Every job and session transition is recorded with the acting user. Newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				events, err := a.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(cmd.OutOrStdout(), events)
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind (job, session)")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}
