package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OpenEditor opens the product editor. EditorCreate starts from the blank
// template and ignores id; EditorEdit copies product id from the snapshot.
func (c *Console) OpenEditor(kind EditorKind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.browsingLocked() {
		return ErrInvalidTransition
	}
	switch kind {
	case EditorCreate:
		c.setModeLocked(Editing{Kind: EditorCreate, Draft: BlankDraft()})
	case EditorEdit:
		p, ok := c.findLocked(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		c.setModeLocked(Editing{Kind: EditorEdit, Draft: DraftFrom(p)})
	default:
		return fmt.Errorf("unknown editor kind %q", kind)
	}
	return nil
}

// editLocked applies fn to the open draft. c.mu must be held.
func (c *Console) editLocked(fn func(d *Draft) error) error {
	e, ok := c.mode.(Editing)
	if !ok {
		return ErrInvalidTransition
	}
	if err := fn(&e.Draft); err != nil {
		return err
	}
	c.mode = e
	return nil
}

// SetField stores a form field on the open draft.
func (c *Console) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editLocked(func(d *Draft) error { return d.SetField(name, value) })
}

// SetImageAt stores a secondary image URL on the open draft.
func (c *Console) SetImageAt(i int, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editLocked(func(d *Draft) error { return d.SetImageAt(i, value) })
}

// AddImageSlot appends an image slot to the open draft when allowed.
func (c *Console) AddImageSlot() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var added bool
	err := c.editLocked(func(d *Draft) error {
		added = d.AddImageSlot()
		return nil
	})
	return added, err
}

// RemoveLastImageSlot drops the last image slot of the open draft when allowed.
func (c *Console) RemoveLastImageSlot() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed bool
	err := c.editLocked(func(d *Draft) error {
		removed = d.RemoveLastImageSlot()
		return nil
	})
	return removed, err
}

// SubmitEditor validates and normalizes the draft, creates or updates the
// product, reloads the directory and closes the editor. On failure the editor
// stays open with the draft untouched.
func (c *Console) SubmitEditor(ctx context.Context) error {
	c.mu.Lock()
	e, ok := c.mode.(Editing)
	if !ok {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	s, err := c.sessionLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := e.Draft.Validate(); err != nil {
		c.notifyLocked(ToastError, "Please complete the form", validationDetail(err))
		c.mu.Unlock()
		return err
	}
	payload, err := e.Draft.Normalize()
	if err != nil {
		c.notifyLocked(ToastError, "Please complete the form", validationDetail(err))
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
	if e.Kind == EditorCreate {
		err = c.api.CreateProduct(opCtx, s, payload)
	} else {
		err = c.api.UpdateProduct(opCtx, s, e.Draft.ID, payload)
	}
	cancel()

	c.mu.Lock()
	c.finishLocked(epoch)
	if err != nil {
		c.log.Warn("product save failed", zap.String("kind", string(e.Kind)), zap.String("id", e.Draft.ID), zap.Error(err))
		c.notifyLocked(ToastError, "Could not save product", messageOr(err, "The product could not be saved. Please try again."))
		c.mu.Unlock()
		return fmt.Errorf("save product: %w", err)
	}
	title := "Product updated"
	if e.Kind == EditorCreate {
		title = "Product created"
	}
	c.notifyLocked(ToastSuccess, title, payload.Title)
	c.log.Info("product saved", zap.String("kind", string(e.Kind)), zap.String("id", e.Draft.ID), zap.String("title", payload.Title))
	c.mu.Unlock()

	// The reload runs strictly after the save was acknowledged.
	_, _ = c.Load(ctx)

	c.mu.Lock()
	if c.epoch == epoch {
		c.setModeLocked(Idle{})
	}
	c.mu.Unlock()
	return nil
}

// CloseEditor discards the draft without asking.
func (c *Console) CloseEditor() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mode.(Editing); !ok {
		return ErrInvalidTransition
	}
	c.setModeLocked(Idle{})
	return nil
}
