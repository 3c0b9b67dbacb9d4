package console

import (
	"time"

	"github.com/google/uuid"
)

// ToastKind is the outcome a notification reports.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// ToastDuration is how long a notification stays up without hover.
const ToastDuration = 3 * time.Second

// maxToasts bounds the pending queue; older entries are dropped first.
const maxToasts = 5

// Toast is one transient status message.
type Toast struct {
	ID       string        `json:"id"`
	Kind     ToastKind     `json:"kind"`
	Title    string        `json:"title"`
	Detail   string        `json:"detail"`
	Duration time.Duration `json:"duration"`
}

// DurationMillis is the countdown in milliseconds, for the page script.
func (t Toast) DurationMillis() int64 {
	return t.Duration.Milliseconds()
}

func newToast(kind ToastKind, title, detail string) Toast {
	return Toast{
		ID:       uuid.NewString(),
		Kind:     kind,
		Title:    title,
		Detail:   detail,
		Duration: ToastDuration,
	}
}

// notifyLocked queues a toast. c.mu must be held.
func (c *Console) notifyLocked(kind ToastKind, title, detail string) {
	c.toasts = append(c.toasts, newToast(kind, title, detail))
	if len(c.toasts) > maxToasts {
		c.toasts = append([]Toast(nil), c.toasts[len(c.toasts)-maxToasts:]...)
	}
}

// TakeToasts returns the pending notifications and clears the queue.
func (c *Console) TakeToasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.toasts
	c.toasts = nil
	return out
}
