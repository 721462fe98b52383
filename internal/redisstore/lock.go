package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"interviewhub/internal/errors"
	"interviewhub/internal/logger"
	"interviewhub/internal/service"
)

// DefaultLockTTL bounds how long a crashed holder can keep a session locked.
const DefaultLockTTL = 30 * time.Second

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a service.ConcurrencyManager backed by SET NX PX.
type Locker struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	log    *zap.SugaredLogger
}

func NewLocker(client *goredis.Client, prefix string, ttl time.Duration, log *zap.SugaredLogger) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, prefix: prefixOrDefault(prefix), ttl: ttl, log: logger.Component(log, "redis-lock")}
}

func (l *Locker) key(sessionID string) string { return l.prefix + "lock:" + sessionID }

func (l *Locker) TryAcquire(ctx context.Context, sessionID string) (func(), error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, l.key(sessionID), token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire lock for %s", sessionID)
	}
	if !ok {
		return nil, errors.Wrapf(service.ErrSessionLocked, "session %s", sessionID)
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The caller's ctx may already be cancelled; release must still run.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{l.key(sessionID)}, token).Err(); err != nil {
			l.log.Warnw("lock release failed", logger.FieldSessionID, sessionID, logger.FieldError, err)
		}
	}, nil
}
