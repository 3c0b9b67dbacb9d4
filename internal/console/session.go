package console

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// SubmitCredentials signs in. On success the console becomes Idle, the
// credential draft is cleared and the directory is loaded; the returned
// session is what the caller persists. On failure the console stays
// Unauthenticated and nothing is returned for persistence.
func (c *Console) SubmitCredentials(ctx context.Context, creds models.Credentials) (models.Session, error) {
	c.mu.Lock()
	if _, ok := c.mode.(Unauthenticated); !ok {
		c.mu.Unlock()
		return models.Session{}, ErrInvalidTransition
	}
	c.username = creds.Username
	if err := check(creds); err != nil {
		c.notifyLocked(ToastError, "Sign-in failed", validationDetail(err))
		c.mu.Unlock()
		return models.Session{}, err
	}
	epoch, err := c.beginLocked()
	if err != nil {
		c.mu.Unlock()
		return models.Session{}, err
	}
	c.mu.Unlock()

	opCtx, cancel := c.opContext(ctx)
	res, err := c.api.SignIn(opCtx, creds)
	cancel()

	c.mu.Lock()
	c.finishLocked(epoch)
	if err != nil {
		c.log.Warn("sign-in failed", zap.String("username", creds.Username), zap.Error(err))
		c.notifyLocked(ToastError, "Sign-in failed", messageOr(err, "Check your e-mail and password and try again."))
		c.mu.Unlock()
		return models.Session{}, fmt.Errorf("sign in: %w", err)
	}
	if _, ok := c.mode.(Unauthenticated); !ok || c.epoch != epoch {
		// Another sign-in or verification won the race; keep its session.
		c.mu.Unlock()
		return models.Session{}, ErrInvalidTransition
	}
	s := res.Session
	c.session = &s
	c.username = ""
	c.setModeLocked(Idle{})
	c.notifyLocked(ToastSuccess, orDefault(res.Message, "Signed in"), "Signed in as "+creds.Username)
	c.log.Info("signed in", zap.String("username", creds.Username), zap.String("uid", res.UID), zap.Time("expiry", s.Expiry))
	c.mu.Unlock()

	// A failed first load is reported but does not undo the sign-in.
	_, _ = c.Load(ctx)
	return s, nil
}

// VerifySession adopts a stored session after asking the API whether it is
// still accepted, then loads the directory. Any failure, including network
// and decoding failures, leaves the console Unauthenticated and drops the
// session; it is never retried.
func (c *Console) VerifySession(ctx context.Context, s models.Session) error {
	c.mu.Lock()
	if !s.Valid(c.now()) {
		c.dropSessionLocked()
		c.notifyLocked(ToastError, "Session verification failed", "Your session has expired. Please sign in again.")
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	epoch, err := c.beginLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	opCtx, cancel := c.opContext(ctx)
	err = c.api.Check(opCtx, s)
	cancel()

	c.mu.Lock()
	c.finishLocked(epoch)
	if err != nil {
		c.log.Warn("session verification failed", zap.Error(err))
		c.dropSessionLocked()
		c.notifyLocked(ToastError, "Session verification failed", messageOr(err, "Please sign in again."))
		c.mu.Unlock()
		return fmt.Errorf("verify session: %w", err)
	}
	if c.epoch != epoch {
		// The user signed out or moved on while the check was in flight.
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.session = &s
	if _, unauth := c.mode.(Unauthenticated); unauth {
		c.setModeLocked(Idle{})
	}
	c.notifyLocked(ToastSuccess, "Session verified", "You are signed in.")
	c.mu.Unlock()

	_, _ = c.Load(ctx)
	return nil
}

// Logout drops the session together with any selection, draft or pending
// deletion so nothing stale is visible after the next sign-in.
func (c *Console) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropSessionLocked()
	c.log.Info("signed out")
}

// Expire is Logout for a session whose token has lapsed or vanished.
func (c *Console) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	c.expireLocked()
}

func (c *Console) expireLocked() {
	c.dropSessionLocked()
	c.notifyLocked(ToastError, "Session expired", "Please sign in again.")
	c.log.Info("session expired")
}

func (c *Console) dropSessionLocked() {
	c.session = nil
	c.products = []models.Product{}
	c.setModeLocked(Unauthenticated{})
}

func validationDetail(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Detail()
	}
	return err.Error()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
