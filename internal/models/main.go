// Package models defines the core data structures shared by the API client,
// the console state machine and the renderers.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Credentials is the sign-in form held until it is submitted.
type Credentials struct {
	// Username is the admin account e-mail.
	Username string `json:"username" validate:"required,email"`
	// Password is never persisted.
	Password string `json:"password" validate:"required"`
}

// Session is the authenticated state issued by the external API.
type Session struct {
	// Token is attached to every authorized request.
	Token string `json:"token"`
	// Expiry is the server-issued expiry of Token.
	Expiry time.Time `json:"expiry"`
}

// Valid reports whether the session carries a token that has not expired at now.
func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && now.Before(s.Expiry)
}

// Flag is the product enabled marker. The API answers with either 0/1 or
// true/false; it is always sent back as 0/1.
type Flag bool

// MarshalJSON encodes the flag as 0 or 1.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts numbers, booleans and null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "true":
		*f = true
		return nil
	case "false", "null", "":
		*f = false
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("flag: unexpected value %s", b)
	}
	*f = n != 0
	return nil
}

// Product is a catalog entry as returned by the external API.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"imageUrl"`
	ImagesURL   []string `json:"imagesUrl"`
	IsEnabled   Flag     `json:"is_enabled"`
	OriginPrice float64  `json:"origin_price"`
	Price       float64  `json:"price"`
	Unit        string   `json:"unit"`
}

// Clone returns a copy of p that shares no slices with it.
func (p Product) Clone() Product {
	c := p
	if p.ImagesURL != nil {
		c.ImagesURL = append([]string(nil), p.ImagesURL...)
	}
	return c
}

// GalleryImages returns the secondary images with empty entries dropped.
func (p Product) GalleryImages() []string {
	out := make([]string, 0, len(p.ImagesURL))
	for _, u := range p.ImagesURL {
		if u == "" {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ProductPayload is a product normalized for a create or update call.
// ID is omitted from the JSON body when empty (create).
type ProductPayload struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"imageUrl"`
	ImagesURL   []string `json:"imagesUrl"`
	IsEnabled   int      `json:"is_enabled"`
	OriginPrice float64  `json:"origin_price"`
	Price       float64  `json:"price"`
	Unit        string   `json:"unit"`
}

// MarshalJSON keeps ImagesURL a JSON array even when nil.
func (p ProductPayload) MarshalJSON() ([]byte, error) {
	type plain ProductPayload
	if p.ImagesURL == nil {
		p.ImagesURL = []string{}
	}
	return json.Marshal(plain(p))
}

// FormatPrice renders a price the way it is typed into the editor.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
