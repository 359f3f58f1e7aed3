package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rpattn/sheetpattern/internal/auth"

	"github.com/google/uuid"
)

// WorkspaceHeader names the request header carrying the caller's workspace.
const WorkspaceHeader = "X-Workspace-ID"

// WorkspaceMiddleware scopes the request to the workspace named in
// WorkspaceHeader. Requests without the header pass through unscoped.
func WorkspaceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(WorkspaceHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid workspace id: %v", err), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithWorkspaceID(r.Context(), id)))
	})
}
