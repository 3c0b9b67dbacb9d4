package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// CSRFFieldName and CSRFHeaderName carry the token on unsafe requests.
const (
	CSRFFieldName  = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRF issues and checks tokens bound to the workspace id, so a page can
// only post into the workspace it was rendered for.
type CSRF struct {
	secret []byte
}

// NewCSRF returns a CSRF guard keyed by secret.
func NewCSRF(secret []byte) *CSRF {
	return &CSRF{secret: append([]byte(nil), secret...)}
}

// Token returns the token for workspace id.
func (c *CSRF) Token(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// Valid reports whether token belongs to workspace id.
func (c *CSRF) Valid(id, token string) bool {
	if id == "" || token == "" {
		return false
	}
	return hmac.Equal([]byte(c.Token(id)), []byte(token))
}

// Protect rejects state-changing requests whose token does not match the
// workspace in the request context. It must run after Workspace.
func (c *CSRF) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		token := r.FormValue(CSRFFieldName)
		if token == "" {
			token = r.Header.Get(CSRFHeaderName)
		}
		if !c.Valid(GetWorkspaceIDFromContext(r.Context()), token) {
			http.Error(w, "invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
