package console

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/atinyakov/CatalogAdmin/internal/client/api"
	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// fakeAPI is an in-memory stand-in for the external API.
type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]string
	token    string
	expiry   time.Time
	products []models.Product
	nextID   int

	signInErr error
	checkErr  error
	listErr   error
	saveErr   error
	deleteErr error

	// block, when set, is waited on by CreateProduct before it answers.
	block chan struct{}
	// listHold, when set, holds the next ListProducts answer (taken before
	// the wait) until it is closed; listEntered is signalled once the call waits.
	listHold    chan struct{}
	listEntered chan struct{}

	created []models.ProductPayload
	updated []models.ProductPayload
	deleted []string
	lists   int
}

func newFakeAPI(products ...models.Product) *fakeAPI {
	return &fakeAPI{
		users:    map[string]string{"admin@example.com": "secret"},
		token:    "tok-1",
		expiry:   time.Now().Add(time.Hour),
		products: products,
		nextID:   len(products) + 1,
	}
}

func (f *fakeAPI) SignIn(_ context.Context, creds models.Credentials) (api.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return api.SignInResult{}, f.signInErr
	}
	if pw, ok := f.users[creds.Username]; !ok || pw != creds.Password {
		return api.SignInResult{}, &api.AuthError{Status: 400, Message: "wrong password"}
	}
	return api.SignInResult{
		Session: models.Session{Token: f.token, Expiry: f.expiry},
		Message: "signed in",
		UID:     "u-" + creds.Username,
	}, nil
}

func (f *fakeAPI) authorize(s models.Session) bool {
	return s.Token == f.token
}

func (f *fakeAPI) Check(_ context.Context, s models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return f.checkErr
	}
	if !f.authorize(s) {
		return &api.AuthError{Status: 403, Message: "invalid token"}
	}
	return nil
}

func (f *fakeAPI) ListProducts(_ context.Context, s models.Session) ([]models.Product, error) {
	f.mu.Lock()
	f.lists++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	if !f.authorize(s) {
		f.mu.Unlock()
		return nil, &api.FetchError{Status: 403, Message: "invalid token"}
	}
	out := make([]models.Product, len(f.products))
	for i, p := range f.products {
		out[i] = p.Clone()
	}
	hold, entered := f.listHold, f.listEntered
	f.listHold = nil
	f.mu.Unlock()

	if hold != nil {
		entered <- struct{}{}
		<-hold
	}
	return out, nil
}

func (f *fakeAPI) CreateProduct(_ context.Context, s models.Session, p models.ProductPayload) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if !f.authorize(s) {
		return &api.APIError{Op: "create", Status: 403}
	}
	f.created = append(f.created, p)
	f.products = append(f.products, fromPayload(strconv.Itoa(f.nextID), p))
	f.nextID++
	return nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, s models.Session, id string, p models.ProductPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	for i := range f.products {
		if f.products[i].ID == id {
			f.updated = append(f.updated, p)
			f.products[i] = fromPayload(id, p)
			return nil
		}
	}
	return &api.APIError{Op: "update", Status: 404, Message: fmt.Sprintf("product %s not found", id)}
}

func (f *fakeAPI) DeleteProduct(_ context.Context, s models.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.products {
		if f.products[i].ID == id {
			f.deleted = append(f.deleted, id)
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return &api.APIError{Op: "delete", Status: 404}
}

func fromPayload(id string, p models.ProductPayload) models.Product {
	return models.Product{
		ID:          id,
		Title:       p.Title,
		Category:    p.Category,
		Description: p.Description,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		ImagesURL:   append([]string(nil), p.ImagesURL...),
		IsEnabled:   p.IsEnabled == 1,
		OriginPrice: p.OriginPrice,
		Price:       p.Price,
		Unit:        p.Unit,
	}
}

func sampleProducts() []models.Product {
	return []models.Product{
		{
			ID: "p1", Title: "Cat tower", Category: "furniture", Unit: "piece",
			OriginPrice: 1200, Price: 990, IsEnabled: true,
			Description: "Three levels", Content: "Wood and sisal",
			ImageURL: "https://img.example.com/tower.jpg", ImagesURL: []string{"https://img.example.com/t1.jpg", "", "https://img.example.com/t2.jpg"},
		},
		{
			ID: "p2", Title: "Dog bowl", Category: "feeding", Unit: "piece",
			OriginPrice: 300, Price: 250,
		},
	}
}

var validCreds = models.Credentials{Username: "admin@example.com", Password: "secret"}
