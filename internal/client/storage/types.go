package storage

import "github.com/atinyakov/CatalogAdmin/internal/models"

// Record is what the shell keeps between runs.
type Record struct {
	Session  models.Session `json:"session"`
	Username string         `json:"username"` // e-mail used to sign in
	SavedAt  int64          `json:"saved_at"` // unix seconds
}

// envelope is the on-disk format.
type envelope struct {
	Version int    `json:"version"`
	Data    string `json:"data"` // base64-encoded nonce || ciphertext
}

const fileVersion = 1
