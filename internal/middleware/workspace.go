package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const workspaceKey ctxKey = "workspace"

// WorkspaceCookieName holds the id of the browser's console workspace.
const WorkspaceCookieName = "workspace"

// Workspace makes sure every request carries a workspace id. A missing or
// malformed cookie is replaced with a new id. The id is stored in the
// request context, so it can be used downstream to find the console.
func Workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(WorkspaceCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     WorkspaceCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), workspaceKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetWorkspaceIDFromContext extracts the workspace id from the request
// context. Returns an empty string if not found.
func GetWorkspaceIDFromContext(ctx context.Context) string {
	val := ctx.Value(workspaceKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
