// Package console holds the admin console's state machine: the session gate,
// the product directory snapshot, the product editor, the delete confirmation
// and the pending notifications. Rendering layers read a View and call the
// operations; they never mutate state directly.
//
// The console's mutex is never held across a call to the external API, so a
// slow directory reload does not block opening the editor. Submissions carry
// an epoch: when the user leaves the mode the submission started in, its
// result still reloads the directory but no longer changes the mode.
package console

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/client/api"
	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// DefaultOpTimeout bounds every call made to the external API.
const DefaultOpTimeout = 15 * time.Second

// API is the subset of the external API the console needs.
type API interface {
	SignIn(ctx context.Context, creds models.Credentials) (api.SignInResult, error)
	Check(ctx context.Context, s models.Session) error
	ListProducts(ctx context.Context, s models.Session) ([]models.Product, error)
	CreateProduct(ctx context.Context, s models.Session, p models.ProductPayload) error
	UpdateProduct(ctx context.Context, s models.Session, id string, p models.ProductPayload) error
	DeleteProduct(ctx context.Context, s models.Session, id string) error
}

// Console is the state of one admin console instance.
type Console struct {
	api       API
	log       *zap.Logger
	now       func() time.Time
	opTimeout time.Duration

	mu       sync.Mutex
	session  *models.Session
	mode     Mode
	products []models.Product
	username string
	toasts   []Toast

	// epoch changes on every mode change.
	epoch     uint64
	busy      bool
	busyEpoch uint64

	// loadSeq numbers directory loads; loadApplied is the newest one applied.
	loadSeq     uint64
	loadApplied uint64
}

// New returns an unauthenticated console.
func New(a API, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{
		api:       a,
		log:       log,
		now:       time.Now,
		opTimeout: DefaultOpTimeout,
		mode:      Unauthenticated{},
		products:  []models.Product{},
	}
}

// Restore rebuilds a console from a snapshot. A snapshot without a session
// always restores as unauthenticated.
func Restore(a API, log *zap.Logger, st State) *Console {
	c := New(a, log)
	if st.Session != nil {
		s := *st.Session
		c.session = &s
		c.mode = Idle{}
		if st.Mode != nil {
			if _, unauth := st.Mode.(Unauthenticated); !unauth {
				c.mode = cloneMode(st.Mode)
			}
		}
	}
	if st.Products != nil {
		c.products = cloneProducts(st.Products)
	}
	c.username = st.Username
	c.toasts = append([]Toast(nil), st.Toasts...)
	return c
}

// Snapshot returns the persistable state. The password draft is never included.
func (c *Console) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Mode:     cloneMode(c.mode),
		Products: cloneProducts(c.products),
		Username: c.username,
		Toasts:   append([]Toast(nil), c.toasts...),
	}
	if c.session != nil {
		s := *c.session
		st.Session = &s
	}
	return st
}

// View is a read-only copy of the console for rendering.
type View struct {
	Authenticated bool
	Mode          Mode
	Products      []models.Product
	// Username is the credential draft shown on the sign-in form.
	Username string
	// Busy is set while a submission from the current mode is in flight.
	Busy bool
}

// View returns the current state for rendering.
func (c *Console) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Authenticated: c.session != nil,
		Mode:          cloneMode(c.mode),
		Products:      cloneProducts(c.products),
		Username:      c.username,
		Busy:          c.busyLocked(),
	}
}

// Session returns the current session, if any.
func (c *Console) Session() (models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return models.Session{}, false
	}
	return *c.session, true
}

// setModeLocked switches modes and advances the epoch. c.mu must be held.
func (c *Console) setModeLocked(m Mode) {
	c.mode = m
	c.epoch++
}

func (c *Console) busyLocked() bool {
	return c.busy && c.busyEpoch == c.epoch
}

// beginLocked marks a submission from the current mode as in flight and
// returns the epoch it belongs to. c.mu must be held.
func (c *Console) beginLocked() (uint64, error) {
	if c.busyLocked() {
		return 0, ErrBusy
	}
	c.busy = true
	c.busyEpoch = c.epoch
	return c.epoch, nil
}

// finishLocked clears the in-flight mark set by beginLocked for epoch.
func (c *Console) finishLocked(epoch uint64) {
	if c.busyEpoch == epoch {
		c.busy = false
	}
}

// sessionLocked returns the session when it is present and unexpired. An
// expired session drops the console back to Unauthenticated. c.mu must be held.
func (c *Console) sessionLocked() (models.Session, error) {
	if c.session == nil {
		return models.Session{}, ErrNotAuthenticated
	}
	if !c.session.Valid(c.now()) {
		c.expireLocked()
		return models.Session{}, ErrNotAuthenticated
	}
	return *c.session, nil
}

// opContext detaches ctx from its caller's cancellation: a started request is
// never aborted by a later user action, only by the timeout.
func (c *Console) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
}

func (c *Console) findLocked(id string) (models.Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return models.Product{}, false
}

func cloneProducts(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// messageOr returns the server message carried by err, or fallback.
func messageOr(err error, fallback string) string {
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	return fallback
}
