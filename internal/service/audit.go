package service

import "context"

// EventSink records audit events. A nil sink disables auditing.
type EventSink interface {
	Append(ctx context.Context, evtType, entityKind, entityID, actorID string, payload map[string]any) error
}

type actorKey struct{}

// WithActor tags ctx with the id of the caller, used on audit events.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom returns the actor stored by WithActor, or "system".
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "system"
}
