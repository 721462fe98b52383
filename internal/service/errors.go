package service

import "interviewhub/internal/errors"

var (
	// ErrSessionLocked is the fail-fast signal returned when another mutating
	// call already holds the session. Callers should retry, not wait.
	ErrSessionLocked = errors.New("session is locked by another operation")
	// ErrNotFound is returned when a request names a job or session that does not exist.
	ErrNotFound = errors.New("not found")
)

func notFound(kind, id string) error {
	return errors.Wrapf(ErrNotFound, "%s %s", kind, id)
}
