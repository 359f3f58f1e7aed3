package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type contextKey string

const workspaceIDKey contextKey = "workspaceID"

// ErrWorkspaceScope is returned when a request touches a workspace outside its scope.
var ErrWorkspaceScope = errors.New("workspace outside authenticated scope")

// ErrWorkspaceRequired is returned when no workspace id was supplied.
var ErrWorkspaceRequired = errors.New("workspaceId is required")

// ContextWithWorkspaceID returns a new context that carries the authenticated workspace scope.
func ContextWithWorkspaceID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, workspaceIDKey, id)
}

// WorkspaceIDFromContext retrieves the authenticated workspace scope from the context, if any.
func WorkspaceIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(workspaceIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EnforceWorkspaceScope ensures the provided workspace matches the authenticated scope when present.
func EnforceWorkspaceScope(ctx context.Context, workspaceID uuid.UUID) error {
	if workspaceID == uuid.Nil {
		return ErrWorkspaceRequired
	}
	scopedID, ok := WorkspaceIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != workspaceID {
		return fmt.Errorf("%w: workspaceId %s", ErrWorkspaceScope, workspaceID)
	}
	return nil
}
