package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OpenDelete asks for confirmation before deleting product id.
func (c *Console) OpenDelete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.browsingLocked() {
		return ErrInvalidTransition
	}
	p, ok := c.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	c.setModeLocked(ConfirmingDelete{Product: p})
	return nil
}

// CloseDelete dismisses the confirmation.
func (c *Console) CloseDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mode.(ConfirmingDelete); !ok {
		return ErrInvalidTransition
	}
	c.setModeLocked(Idle{})
	return nil
}

// ConfirmDelete deletes the pending product, reloads the directory and closes
// the confirmation. The row disappears only once the reload no longer has it.
func (c *Console) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	d, ok := c.mode.(ConfirmingDelete)
	if !ok {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	s, err := c.sessionLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	epoch, err := c.beginLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	opCtx, cancel := c.opContext(ctx)
	err = c.api.DeleteProduct(opCtx, s, d.Product.ID)
	cancel()

	c.mu.Lock()
	c.finishLocked(epoch)
	if err != nil {
		c.log.Warn("product delete failed", zap.String("id", d.Product.ID), zap.Error(err))
		c.notifyLocked(ToastError, "Could not delete product", messageOr(err, "The product could not be deleted. Please try again."))
		c.mu.Unlock()
		return fmt.Errorf("delete product: %w", err)
	}
	c.notifyLocked(ToastSuccess, "Product deleted", d.Product.Title)
	c.log.Info("product deleted", zap.String("id", d.Product.ID))
	c.mu.Unlock()

	_, _ = c.Load(ctx)

	c.mu.Lock()
	if c.epoch == epoch {
		c.setModeLocked(Idle{})
	}
	c.mu.Unlock()
	return nil
}
