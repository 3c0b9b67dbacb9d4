// Package api is a typed client for the external product catalog REST API.
// Every authorized call takes the session explicitly; the client itself holds
// no credentials.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

const (
	pathSignIn = "/admin/signin"
	pathCheck  = "/api/user/check"
)

// maxBody bounds how much of a response body is read.
const maxBody = 4 << 20

// Config describes where the external API lives.
type Config struct {
	// BaseURL is the API origin, e.g. https://api.example.com.
	BaseURL string
	// BasePath is the per-shop path segment used by product endpoints.
	BasePath string
	// AuthScheme prefixes the token in the Authorization header. Empty sends the raw token.
	AuthScheme string
	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	Session models.Session
	// Message is the server greeting, e.g. "登入成功".
	Message string
	UID     string
}

// Client talks to the external API.
type Client struct {
	baseURL  string
	basePath string
	scheme   string
	http     *http.Client
}

// New constructs a Client from cfg.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		basePath: strings.Trim(cfg.BasePath, "/"),
		scheme:   cfg.AuthScheme,
		http:     hc,
	}
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, creds models.Credentials) (SignInResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, pathSignIn, nil, creds)
	if err != nil {
		return SignInResult{}, &AuthError{Status: status, Err: err}
	}
	if !ok(status) {
		return SignInResult{}, &AuthError{Status: status, Message: parseMessage(body)}
	}
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Expired int64  `json:"expired"`
		UID     string `json:"uid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return SignInResult{}, &AuthError{Status: status, Err: fmt.Errorf("decode sign-in response: %w", err)}
	}
	if !resp.Success || resp.Token == "" {
		return SignInResult{}, &AuthError{Status: status, Message: parseMessage(body)}
	}

	expiry, err := resolveExpiry(resp.Expired, resp.Token)
	if err != nil {
		return SignInResult{}, &AuthError{Status: status, Err: err}
	}

	return SignInResult{
		Session: models.Session{Token: resp.Token, Expiry: expiry},
		Message: parseMessage(body),
		UID:     resp.UID,
	}, nil
}

// Check asks the API whether the session token is still accepted.
func (c *Client) Check(ctx context.Context, s models.Session) error {
	status, body, err := c.do(ctx, http.MethodPost, pathCheck, &s, nil)
	if err != nil {
		return &AuthError{Status: status, Err: err}
	}
	if !ok(status) {
		return &AuthError{Status: status, Message: parseMessage(body)}
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &AuthError{Status: status, Err: fmt.Errorf("decode check response: %w", err)}
	}
	if !resp.Success {
		return &AuthError{Status: status, Message: parseMessage(body)}
	}
	return nil
}

// ListProducts fetches every product visible to the admin.
func (c *Client) ListProducts(ctx context.Context, s models.Session) ([]models.Product, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.productsPath("products"), &s, nil)
	if err != nil {
		return nil, &FetchError{Status: status, Err: err}
	}
	if !ok(status) {
		return nil, &FetchError{Status: status, Message: parseMessage(body)}
	}
	var resp struct {
		Success  *bool            `json:"success"`
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Status: status, Err: fmt.Errorf("decode products: %w", err)}
	}
	if resp.Success != nil && !*resp.Success {
		return nil, &FetchError{Status: status, Message: parseMessage(body)}
	}
	if resp.Products == nil {
		resp.Products = []models.Product{}
	}
	return resp.Products, nil
}

// CreateProduct creates a product. Any ID in p is dropped.
func (c *Client) CreateProduct(ctx context.Context, s models.Session, p models.ProductPayload) error {
	p.ID = ""
	return c.mutate(ctx, "create", http.MethodPost, c.productsPath("product"), s, p)
}

// UpdateProduct replaces the product id with p.
func (c *Client) UpdateProduct(ctx context.Context, s models.Session, id string, p models.ProductPayload) error {
	p.ID = id
	return c.mutate(ctx, "update", http.MethodPut, c.productsPath("product", id), s, p)
}

// DeleteProduct removes the product id.
func (c *Client) DeleteProduct(ctx context.Context, s models.Session, id string) error {
	return c.mutate(ctx, "delete", http.MethodDelete, c.productsPath("product", id), s, nil)
}

func (c *Client) mutate(ctx context.Context, op, method, path string, s models.Session, p any) error {
	var payload any
	if p != nil {
		payload = map[string]any{"data": p}
	}
	status, body, err := c.do(ctx, method, path, &s, payload)
	if err != nil {
		return &APIError{Op: op, Status: status, Err: err}
	}
	if !ok(status) {
		return &APIError{Op: op, Status: status, Message: parseMessage(body)}
	}
	var resp struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Success != nil && !*resp.Success {
		return &APIError{Op: op, Status: status, Message: parseMessage(body)}
	}
	return nil
}

func (c *Client) productsPath(parts ...string) string {
	var b strings.Builder
	b.WriteString("/api/")
	b.WriteString(url.PathEscape(c.basePath))
	b.WriteString("/admin")
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// do performs one request and returns the status and body. A non-nil error
// means no usable response was received.
func (c *Client) do(ctx context.Context, method, path string, s *models.Session, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil {
		req.Header.Set("Authorization", c.authorization(s.Token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) authorization(token string) string {
	if c.scheme == "" {
		return token
	}
	return c.scheme + " " + token
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// ErrNoExpiry is returned when neither the response nor the token carries an expiry.
var ErrNoExpiry = errors.New("session expiry missing")
