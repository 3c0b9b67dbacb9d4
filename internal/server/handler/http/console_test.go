package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/client/api"
	"github.com/atinyakov/CatalogAdmin/internal/middleware"
	"github.com/atinyakov/CatalogAdmin/internal/models"
	"github.com/atinyakov/CatalogAdmin/internal/repository"
	"github.com/atinyakov/CatalogAdmin/internal/server/view"
	"github.com/atinyakov/CatalogAdmin/internal/service"
)

// fakeAPI is an in-memory catalog with a single account.
type fakeAPI struct {
	mu       sync.Mutex
	products []models.Product
	seq      int
	checks   int
	checkErr error
}

func (f *fakeAPI) SignIn(_ context.Context, creds models.Credentials) (api.SignInResult, error) {
	if creds.Password != "secret" {
		return api.SignInResult{}, &api.AuthError{Status: 400, Message: "Wrong password"}
	}
	return api.SignInResult{Session: models.Session{Token: "tok-1", Expiry: time.Now().Add(time.Hour)}}, nil
}

func (f *fakeAPI) Check(context.Context, models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.checkErr
}

func (f *fakeAPI) ListProducts(context.Context, models.Session) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeAPI) CreateProduct(_ context.Context, _ models.Session, p models.ProductPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.products = append(f.products, fromPayload(fmt.Sprintf("n%d", f.seq), p))
	return nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, _ models.Session, id string, p models.ProductPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i] = fromPayload(id, p)
			return nil
		}
	}
	return &api.APIError{Op: "update", Status: 404, Message: "Product not found"}
}

func (f *fakeAPI) DeleteProduct(_ context.Context, _ models.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return &api.APIError{Op: "delete", Status: 404, Message: "Product not found"}
}

func fromPayload(id string, p models.ProductPayload) models.Product {
	return models.Product{
		ID: id, Title: p.Title, Category: p.Category, Unit: p.Unit,
		OriginPrice: p.OriginPrice, Price: p.Price, Description: p.Description,
		Content: p.Content, ImageURL: p.ImageURL, ImagesURL: p.ImagesURL,
		IsEnabled: p.IsEnabled == 1,
	}
}

// browser drives the router and keeps cookies between requests.
type browser struct {
	t       *testing.T
	h       http.Handler
	csrf    *middleware.CSRF
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, f *fakeAPI) *browser {
	t.Helper()
	renderer, err := view.New()
	require.NoError(t, err)
	csrf := middleware.NewCSRF([]byte("test-secret"))
	h := &ConsoleHandler{
		Workspaces: service.NewWorkspaceService(repository.NewMemoryWorkspaceRepository(), f, nil),
		Sessions:   NewCookieSessionStore(false),
		CSRF:       csrf,
		View:       renderer,
		Log:        zap.NewNop(),
	}
	return &browser{t: t, h: NewRouter(h, zap.NewNop()), csrf: csrf, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get() string {
	b.t.Helper()
	rec := b.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(b.t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

// post submits form with a valid CSRF token and expects the redirect.
func (b *browser) post(path string, form url.Values) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	ws, ok := b.cookies[middleware.WorkspaceCookieName]
	require.True(b.t, ok, "load the page before posting")
	form.Set(middleware.CSRFFieldName, b.csrf.Token(ws.Value))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.do(req)
	require.Equal(b.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(b.t, "/", rec.Header().Get("Location"))
}

func (b *browser) login() string {
	b.t.Helper()
	b.get()
	b.post("/login", url.Values{"username": {"admin@example.com"}, "password": {"secret"}})
	return b.get()
}

func catalog() *fakeAPI {
	return &fakeAPI{products: []models.Product{
		{ID: "p1", Title: "Cat tower", Category: "furniture", Unit: "pcs", OriginPrice: 1200, Price: 990, ImagesURL: []string{""}},
		{ID: "p2", Title: "Dog bowl", Category: "kitchen", Unit: "pcs", OriginPrice: 300, Price: 250, ImagesURL: []string{""}},
	}}
}

func TestIndex_FirstVisitShowsLogin(t *testing.T) {
	b := newBrowser(t, catalog())
	out := b.get()

	assert.Contains(t, out, `action="/login"`)
	ws, ok := b.cookies[middleware.WorkspaceCookieName]
	require.True(t, ok)
	assert.Contains(t, out, b.csrf.Token(ws.Value))
}

func TestLogin_SetsCookiesAndShowsProducts(t *testing.T) {
	b := newBrowser(t, catalog())
	out := b.login()

	assert.Equal(t, "tok-1", b.cookies[TokenCookieName].Value)
	assert.NotEmpty(t, b.cookies[ExpiryCookieName].Value)
	assert.Contains(t, out, `id="product-p1"`)
	assert.Contains(t, out, `id="product-p2"`)
	assert.NotContains(t, out, `action="/login"`)

	// Toasts are shown once.
	assert.Contains(t, out, "Signed in as admin@example.com")
	assert.NotContains(t, b.get(), "Signed in as admin@example.com")
}

func TestLogin_WrongPassword(t *testing.T) {
	b := newBrowser(t, catalog())
	b.get()
	b.post("/login", url.Values{"username": {"admin@example.com"}, "password": {"nope"}})
	out := b.get()

	assert.Contains(t, out, "Sign-in failed")
	assert.Contains(t, out, "Wrong password")
	assert.Contains(t, out, `action="/login"`)
	_, ok := b.cookies[TokenCookieName]
	assert.False(t, ok)
}

func TestPost_RejectsMissingCSRFToken(t *testing.T) {
	b := newBrowser(t, catalog())
	b.get()

	form := url.Values{"username": {"admin@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, ok := b.cookies[TokenCookieName]
	assert.False(t, ok)
}

func TestLogout_ClearsCookies(t *testing.T) {
	b := newBrowser(t, catalog())
	b.login()
	b.post("/logout", nil)

	_, ok := b.cookies[TokenCookieName]
	assert.False(t, ok)
	assert.Contains(t, b.get(), `action="/login"`)
}

func TestIndex_MissingCookieExpiresSession(t *testing.T) {
	b := newBrowser(t, catalog())
	b.login()
	delete(b.cookies, TokenCookieName)
	delete(b.cookies, ExpiryCookieName)

	out := b.get()
	assert.Contains(t, out, "Session expired")
	assert.Contains(t, out, `action="/login"`)
}

func TestIndex_CookieOnFreshWorkspaceIsVerified(t *testing.T) {
	f := catalog()
	b := newBrowser(t, f)
	b.login()
	checks := f.checks

	// A new workspace with the old session cookies, like a second tab after the workspace was cleaned.
	delete(b.cookies, middleware.WorkspaceCookieName)
	out := b.get()

	assert.Equal(t, checks+1, f.checks)
	assert.Contains(t, out, `id="product-p1"`)
}

func TestIndex_RejectedCookieIsCleared(t *testing.T) {
	f := catalog()
	b := newBrowser(t, f)
	b.login()

	f.checkErr = &api.AuthError{Status: 401, Message: "Token revoked"}
	delete(b.cookies, middleware.WorkspaceCookieName)
	out := b.get()

	assert.Contains(t, out, "Session verification failed")
	assert.Contains(t, out, `action="/login"`)
	_, ok := b.cookies[TokenCookieName]
	assert.False(t, ok)
}

func TestVerify(t *testing.T) {
	b := newBrowser(t, catalog())
	b.login()
	b.post("/verify", nil)
	assert.Contains(t, b.get(), "Session verified")
}

func TestSelectShowsDetail(t *testing.T) {
	b := newBrowser(t, catalog())
	b.login()

	b.post("/select", url.Values{"id": {"p2"}})
	assert.Contains(t, b.get(), `<h3>Dog bowl<span class="badge">kitchen</span></h3>`)
	assert.NotContains(t, b.get(), "Select a product to see its details.", "selection survives reloads")

	b.post("/select", url.Values{"id": {""}})
	assert.Contains(t, b.get(), "Select a product to see its details.")
}

func TestCreateProduct(t *testing.T) {
	f := catalog()
	b := newBrowser(t, f)
	b.login()

	b.post("/products/new", nil)
	assert.Contains(t, b.get(), "New product")

	form := url.Values{
		"title":        {"Bird cage"},
		"category":     {"cages"},
		"unit":         {"pcs"},
		"origin_price": {"100"},
		"price":        {"80"},
		"is_enabled":   {"on"},
		"imagesUrl":    {""},
		"action":       {"save"},
	}
	b.post("/editor", form)
	out := b.get()

	assert.Contains(t, out, "Product created")
	assert.Contains(t, out, `id="product-n1"`)
	assert.NotContains(t, out, `action="/editor"`)
	require.Len(t, f.products, 3)
	assert.Equal(t, 80.0, f.products[2].Price)
	assert.True(t, bool(f.products[2].IsEnabled))
}

func TestEditor_InvalidFormKeepsInput(t *testing.T) {
	f := catalog()
	b := newBrowser(t, f)
	b.login()

	b.post("/products/p1/edit", nil)
	b.post("/editor", url.Values{
		"title": {"Cat tower XL"}, "category": {"furniture"}, "unit": {"pcs"},
		"origin_price": {"1200"}, "price": {"12abc"}, "imagesUrl": {""}, "action": {"save"},
	})
	out := b.get()

	assert.Contains(t, out, "Please complete the form")
	assert.Contains(t, out, `value="12abc"`)
	assert.Contains(t, out, `value="Cat tower XL"`)
	assert.Equal(t, "Cat tower", f.products[0].Title)
}

func TestEditor_ImageSlotsAndCancel(t *testing.T) {
	b := newBrowser(t, catalog())
	b.login()
	b.post("/products/p1/edit", nil)

	b.post("/editor", url.Values{"title": {"Cat tower"}, "imagesUrl": {"https://img.example.com/1.jpg"}, "action": {"add-image"}})
	out := b.get()
	assert.Equal(t, 2, strings.Count(out, `name="imagesUrl"`))
	assert.Contains(t, out, `value="https://img.example.com/1.jpg"`)

	b.post("/editor", url.Values{"imagesUrl": {"https://img.example.com/1.jpg", ""}, "action": {"remove-image"}})
	assert.Equal(t, 1, strings.Count(b.get(), `name="imagesUrl"`))

	b.post("/editor", url.Values{"action": {"cancel"}})
	assert.NotContains(t, b.get(), `action="/editor"`)
}

func TestUpdateProduct(t *testing.T) {
	f := catalog()
	b := newBrowser(t, f)
	b.login()

	b.post("/products/p2/edit", nil)
	b.post("/editor", url.Values{
		"title": {"Dog bowl XL"}, "category": {"kitchen"}, "unit": {"pcs"},
		"origin_price": {"300"}, "price": {"199.5"}, "imagesUrl": {""}, "action": {"save"},
	})
	out := b.get()

	assert.Contains(t, out, "Product updated")
	assert.Contains(t, out, "Dog bowl XL")
	assert.Equal(t, 199.5, f.products[1].Price)
	assert.False(t, bool(f.products[1].IsEnabled), "unchecked box disables the product")
}

func TestDeleteProduct(t *testing.T) {
	f := catalog()
	b := newBrowser(t, f)
	b.login()

	b.post("/products/p1/delete", nil)
	assert.Contains(t, b.get(), `action="/delete/confirm"`)

	b.post("/delete/cancel", nil)
	assert.NotContains(t, b.get(), `action="/delete/confirm"`)
	assert.Len(t, f.products, 2)

	b.post("/products/p1/delete", nil)
	b.post("/delete/confirm", nil)
	out := b.get()

	assert.Contains(t, out, "Product deleted")
	assert.NotContains(t, out, `id="product-p1"`)
	assert.Len(t, f.products, 1)
}

func TestActionsWhileSignedOutAreIgnored(t *testing.T) {
	b := newBrowser(t, catalog())
	b.get()

	b.post("/products/p1/delete", nil)
	b.post("/delete/confirm", nil)
	assert.Contains(t, b.get(), `action="/login"`)
}

func TestHealth(t *testing.T) {
	b := newBrowser(t, catalog())
	rec := b.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	_, ok := b.cookies[middleware.WorkspaceCookieName]
	assert.False(t, ok, "health checks do not create workspaces")
}
