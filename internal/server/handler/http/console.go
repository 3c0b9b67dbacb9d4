// Package http provides the console's HTTP handlers: the page, the form
// actions that drive the console state machine and the health check.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/console"
	"github.com/atinyakov/CatalogAdmin/internal/middleware"
	"github.com/atinyakov/CatalogAdmin/internal/models"
	"github.com/atinyakov/CatalogAdmin/internal/server/view"
)

// WorkspaceService defines the workspace operations required by the
// ConsoleHandler.
type WorkspaceService interface {
	// Open returns the live console of workspace id.
	Open(ctx context.Context, id string) (*console.Console, error)
	// Save persists the console state of workspace id.
	Save(ctx context.Context, id string, c *console.Console) error
}

// Renderer writes the console page.
type Renderer interface {
	Render(w io.Writer, p view.Page) error
}

// ConsoleHandler serves the console page and its form actions. Every action
// redirects back to the page, which drains the pending notifications.
type ConsoleHandler struct {
	Workspaces WorkspaceService
	Sessions   *CookieSessionStore
	CSRF       *middleware.CSRF
	View       Renderer
	Log        *zap.Logger
}

// action is one console operation run on behalf of a form post.
type action func(ctx context.Context, c *console.Console, r *http.Request) error

// Index renders the console page.
func (h *ConsoleHandler) Index(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetWorkspaceIDFromContext(r.Context())
	c, ok := h.open(w, r, id)
	if !ok {
		return
	}

	page := view.NewPage(c.View(), c.TakeToasts(), h.CSRF.Token(id))
	h.persist(w, r, id, c)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.View.Render(w, page); err != nil {
		h.Log.Error("failed to render console page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Login handles the sign-in form.
func (h *ConsoleHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, c *console.Console, r *http.Request) error {
		_, err := c.SubmitCredentials(ctx, models.Credentials{
			Username: strings.TrimSpace(r.PostFormValue("username")),
			Password: r.PostFormValue("password"),
		})
		return err
	})
}

// Verify re-checks the current session with the external API.
func (h *ConsoleHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, c *console.Console, r *http.Request) error {
		s, ok := c.Session()
		if !ok {
			return console.ErrNotAuthenticated
		}
		return c.VerifySession(ctx, s)
	})
}

// Logout signs out and clears the session cookies.
func (h *ConsoleHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, c *console.Console, _ *http.Request) error {
		c.Logout()
		return nil
	})
}

// Reload refreshes the product directory.
func (h *ConsoleHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, c *console.Console, _ *http.Request) error {
		_, err := c.Load(ctx)
		return err
	})
}

// Select opens the detail panel for the posted id, or closes it when the id is empty.
func (h *ConsoleHandler) Select(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, c *console.Console, r *http.Request) error {
		return c.Select(r.PostFormValue("id"))
	})
}

// NewProduct opens the editor on a blank draft.
func (h *ConsoleHandler) NewProduct(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, c *console.Console, _ *http.Request) error {
		return c.OpenEditor(console.EditorCreate, "")
	})
}

// EditProduct opens the editor on a copy of product {id}.
func (h *ConsoleHandler) EditProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.run(w, r, func(_ context.Context, c *console.Console, _ *http.Request) error {
		return c.OpenEditor(console.EditorEdit, id)
	})
}

// editorFields are the text and checkbox inputs of the editor form.
var editorFields = []string{
	console.FieldTitle,
	console.FieldCategory,
	console.FieldUnit,
	console.FieldOriginPrice,
	console.FieldPrice,
	console.FieldDescription,
	console.FieldContent,
	console.FieldImageURL,
	console.FieldIsEnabled,
}

// Editor applies the posted form to the draft and then runs the chosen
// action: save, add-image, remove-image or cancel.
func (h *ConsoleHandler) Editor(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, c *console.Console, r *http.Request) error {
		if err := applyDraft(c, r); err != nil {
			return err
		}
		switch r.PostFormValue("action") {
		case "save":
			return c.SubmitEditor(ctx)
		case "add-image":
			_, err := c.AddImageSlot()
			return err
		case "remove-image":
			_, err := c.RemoveLastImageSlot()
			return err
		case "cancel":
			return c.CloseEditor()
		default:
			// Unknown actions only keep the edits.
			return nil
		}
	})
}

func applyDraft(c *console.Console, r *http.Request) error {
	for _, name := range editorFields {
		// An unchecked checkbox is simply absent from the form.
		if err := c.SetField(name, r.PostFormValue(name)); err != nil {
			return err
		}
	}
	for i, u := range r.PostForm["imagesUrl"] {
		err := c.SetImageAt(i, strings.TrimSpace(u))
		if errors.Is(err, console.ErrSlotOutOfRange) {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteProduct opens the delete confirmation for product {id}.
func (h *ConsoleHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.run(w, r, func(_ context.Context, c *console.Console, _ *http.Request) error {
		return c.OpenDelete(id)
	})
}

// ConfirmDelete deletes the product awaiting confirmation.
func (h *ConsoleHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, c *console.Console, _ *http.Request) error {
		return c.ConfirmDelete(ctx)
	})
}

// CancelDelete dismisses the delete confirmation.
func (h *ConsoleHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(_ context.Context, c *console.Console, _ *http.Request) error {
		return c.CloseDelete()
	})
}

// run executes fn against the request's console, persists the outcome and
// redirects to the page. Failures are already on the notification queue,
// so they are only logged here.
func (h *ConsoleHandler) run(w http.ResponseWriter, r *http.Request, fn action) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := middleware.GetWorkspaceIDFromContext(r.Context())
	c, ok := h.open(w, r, id)
	if !ok {
		return
	}

	if err := fn(r.Context(), c, r); err != nil {
		log := h.Log.With(zap.String("path", r.URL.Path), zap.Error(err))
		switch {
		case errors.Is(err, console.ErrBusy), errors.Is(err, console.ErrInvalidTransition):
			log.Debug("console action ignored")
		default:
			log.Info("console action failed")
		}
	}

	h.persist(w, r, id, c)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// open returns the workspace console after reconciling it with the session
// cookie: a valid cookie on an unauthenticated console is verified, a
// missing or expired cookie on an authenticated console expires it.
func (h *ConsoleHandler) open(w http.ResponseWriter, r *http.Request, id string) (*console.Console, bool) {
	c, err := h.Workspaces.Open(r.Context(), id)
	if err != nil {
		h.Log.Error("failed to open workspace", zap.String("workspace", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}

	cookie, hasCookie := h.Sessions.Get(r)
	current, authenticated := c.Session()
	switch {
	case hasCookie && (!authenticated || current.Token != cookie.Token):
		if err := c.VerifySession(r.Context(), cookie); err != nil {
			h.Log.Info("stored session rejected", zap.String("workspace", id), zap.Error(err))
		}
	case !hasCookie && authenticated:
		c.Expire()
	}
	return c, true
}

// persist mirrors the console session into the cookies and saves the workspace.
func (h *ConsoleHandler) persist(w http.ResponseWriter, r *http.Request, id string, c *console.Console) {
	cookie, hasCookie := h.Sessions.Get(r)
	switch s, ok := c.Session(); {
	case ok && (!hasCookie || !sameSession(cookie, s)):
		h.Sessions.Set(w, s)
	case !ok && hasCookie:
		h.Sessions.Clear(w)
	case !ok:
		if _, err := r.Cookie(TokenCookieName); err == nil {
			h.Sessions.Clear(w)
		}
	}

	if err := h.Workspaces.Save(r.Context(), id, c); err != nil {
		h.Log.Error("failed to save workspace", zap.String("workspace", id), zap.Error(err))
	}
}

func sameSession(a, b models.Session) bool {
	return a.Token == b.Token && a.Expiry.UnixMilli() == b.Expiry.UnixMilli()
}

// Health reports that the server is up.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
