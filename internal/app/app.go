// Package app wires configuration into stores and services.
package app

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"interviewhub/internal/config"
	"interviewhub/internal/db"
	"interviewhub/internal/domain"
	"interviewhub/internal/errors"
	"interviewhub/internal/events"
	"interviewhub/internal/logger"
	"interviewhub/internal/memstore"
	"interviewhub/internal/migrate"
	"interviewhub/internal/pgstore"
	"interviewhub/internal/qbank"
	"interviewhub/internal/redisstore"
	"interviewhub/internal/repo"
	"interviewhub/internal/service"
	"interviewhub/internal/session"
)

// App holds the wired services of one process.
type App struct {
	Config   *config.Config
	Log      *zap.SugaredLogger
	DB       *sql.DB
	Repo     repo.Repo
	Jobs     *service.JobService
	Bank     *qbank.Service
	Sessions *service.SessionService
	Admin    *service.AdminQueryService
	Results  ResultReader

	redis *goredis.Client
	pg    *pgxpool.Pool
}

// ResultReader reads flushed interview results from cold storage.
type ResultReader interface {
	GetResult(ctx context.Context, sessionID string) (*session.Result, domain.SessionStatus, error)
}

// Options override pieces of the wiring, mostly for tests.
type Options struct {
	Generator session.QuestionGenerator
}

// Open opens the SQLite workspace, applies migrations and builds the
// services on the configured hot and cold backends.
func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	conn, err := db.Open(db.Config{Workspace: cfg.Storage.Workspace})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: conn, Repo: repo.Repo{DB: conn}}
	if _, err := migrate.Migrate(conn); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "migrate workspace")
	}

	var (
		states  session.StateRepository
		history session.HistoryRepository
		locks   service.ConcurrencyManager = service.NewLocalLocks()
	)
	switch cfg.Storage.Hot {
	case config.HotMemory:
		states = memstore.NewStateStore()
	case config.HotRedis:
		a.redis, err = redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		states = redisstore.NewStateStore(a.redis, cfg.Redis.Prefix)
		locks = redisstore.NewLocker(a.redis, cfg.Redis.Prefix, cfg.Redis.LockTTL, log)
	default:
		states = a.Repo.SessionStates()
	}
	switch cfg.Storage.Cold {
	case config.ColdPostgres:
		a.pg, err = pgstore.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := pgstore.Migrate(ctx, a.pg); err != nil {
			a.Close()
			return nil, err
		}
		pgHistory := pgstore.NewHistoryStore(a.pg)
		history, a.Results = pgHistory, pgHistory
	default:
		sqlHistory := a.Repo.SessionHistory()
		history, a.Results = sqlHistory, sqlHistory
	}

	audit := events.Writer{DB: conn}
	a.Bank = qbank.NewService(a.Repo.Questions(), log)
	a.Jobs = service.NewJobService(a.Repo.Jobs(), log)
	a.Jobs.Events = audit
	a.Sessions = service.NewSessionService(a.Repo.Jobs(), states, history, locks, log)
	a.Sessions.Events = audit
	a.Sessions.Bank = a.Bank
	a.Sessions.Generator = opts.Generator
	if a.Sessions.Generator == nil {
		a.Sessions.Generator = session.DisabledGenerator{}
	}
	a.Admin = service.NewAdminQueryService(states)

	log.Infow("app ready", "hot", cfg.Storage.Hot, "cold", cfg.Storage.Cold, "workspace", cfg.Storage.Workspace)
	return a, nil
}

// Close releases every connection the app opened.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pg != nil {
		a.pg.Close()
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
