package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// Cookie names of the browser-held session.
const (
	TokenCookieName  = "apiToken"
	ExpiryCookieName = "apiTokenExpiry"
)

// CookieSessionStore keeps the external API session in the browser. The
// token cookie expires together with the session; the expiry cookie carries
// the same instant in unix milliseconds because browsers never send Expires
// back.
type CookieSessionStore struct {
	// Secure marks the cookies HTTPS-only.
	Secure bool
	now    func() time.Time
}

// NewCookieSessionStore returns a store; secure should be true when serving HTTPS.
func NewCookieSessionStore(secure bool) *CookieSessionStore {
	return &CookieSessionStore{Secure: secure, now: time.Now}
}

// Get returns the stored session when both cookies are present and it has
// not expired.
func (s *CookieSessionStore) Get(r *http.Request) (models.Session, bool) {
	tok, err := r.Cookie(TokenCookieName)
	if err != nil || tok.Value == "" {
		return models.Session{}, false
	}
	exp, err := r.Cookie(ExpiryCookieName)
	if err != nil {
		return models.Session{}, false
	}
	ms, err := strconv.ParseInt(exp.Value, 10, 64)
	if err != nil {
		return models.Session{}, false
	}
	sess := models.Session{Token: tok.Value, Expiry: time.UnixMilli(ms)}
	if !sess.Valid(s.now()) {
		return models.Session{}, false
	}
	return sess, true
}

// Set writes the session cookies.
func (s *CookieSessionStore) Set(w http.ResponseWriter, sess models.Session) {
	http.SetCookie(w, s.cookie(TokenCookieName, sess.Token, sess.Expiry))
	http.SetCookie(w, s.cookie(ExpiryCookieName, strconv.FormatInt(sess.Expiry.UnixMilli(), 10), sess.Expiry))
}

// Clear removes the session cookies.
func (s *CookieSessionStore) Clear(w http.ResponseWriter) {
	for _, name := range []string{TokenCookieName, ExpiryCookieName} {
		c := s.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (s *CookieSessionStore) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
