package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// Load replaces the directory snapshot with the API's current list. On
// failure the previous snapshot is kept and the error is reported. A
// response that arrives after a later load was already applied is dropped
// and the current snapshot is returned instead.
func (c *Console) Load(ctx context.Context) ([]models.Product, error) {
	c.mu.Lock()
	s, err := c.sessionLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	opCtx, cancel := c.opContext(ctx)
	products, err := c.api.ListProducts(opCtx, s)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.loadApplied {
		c.log.Debug("stale product list dropped", zap.Uint64("load", seq), zap.Uint64("applied", c.loadApplied))
		return cloneProducts(c.products), nil
	}
	if err != nil {
		c.log.Warn("product list load failed", zap.Error(err))
		c.notifyLocked(ToastError, "Could not load products", messageOr(err, "The product list could not be loaded. Please try again."))
		return nil, fmt.Errorf("load products: %w", err)
	}
	if c.session == nil || c.session.Token != s.Token {
		// Signed out (or in again) while loading; the list belongs to another session.
		return nil, ErrNotAuthenticated
	}

	c.loadApplied = seq
	c.products = cloneProducts(products)
	c.refreshSelectionLocked()
	c.log.Debug("product list loaded", zap.Int("count", len(products)))
	return cloneProducts(products), nil
}

// refreshSelectionLocked keeps a Viewing selection in step with a new
// snapshot: the product is replaced by its fresh copy or, when gone, the
// selection is cleared.
func (c *Console) refreshSelectionLocked() {
	v, ok := c.mode.(Viewing)
	if !ok {
		return
	}
	p, found := c.findLocked(v.Product.ID)
	if !found {
		c.setModeLocked(Idle{})
		return
	}
	c.mode = Viewing{Product: p}
}

// Select shows the product id in the detail panel; an empty id clears the
// selection. It makes no network call.
func (c *Console) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.browsingLocked() {
		return ErrInvalidTransition
	}
	if id == "" {
		c.setModeLocked(Idle{})
		return nil
	}
	p, ok := c.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	c.setModeLocked(Viewing{Product: p})
	return nil
}

// browsingLocked reports whether the console is Idle or Viewing, the modes
// from which a selection, the editor or a delete confirmation may open.
func (c *Console) browsingLocked() bool {
	switch c.mode.(type) {
	case Idle, Viewing:
		return true
	}
	return false
}
