// Package storage keeps the shell's sign-in between runs in an encrypted
// local file and reads the shell's interactive input.
package storage

import (
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoSession is returned by Load when nothing usable is stored.
var ErrNoSession = errors.New("storage: no stored session")

// SessionFile is an AEAD-encrypted file holding one Record.
type SessionFile struct {
	path string
	aead cipher.AEAD
	now  func() time.Time
	mu   sync.Mutex
}

// NewSessionFile returns a store at path, encrypted with aead.
func NewSessionFile(path string, aead cipher.AEAD) *SessionFile {
	return &SessionFile{path: path, aead: aead, now: time.Now}
}

// Path returns the file location.
func (sf *SessionFile) Path() string {
	return sf.path
}

// Load returns the stored record. A missing file, a file written with another
// secret and an expired session all give ErrNoSession; the caller signs in
// again in every case.
func (sf *SessionFile) Load() (Record, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	raw, err := os.ReadFile(sf.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNoSession
	}
	if err != nil {
		return Record{}, fmt.Errorf("read session file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Version != fileVersion {
		return Record{}, fmt.Errorf("%w: unknown file format", ErrNoSession)
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	plain, err := open(sf.aead, data)
	if err != nil {
		return Record{}, fmt.Errorf("%w: decrypt: %v", ErrNoSession, err)
	}

	var rec Record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !rec.Session.Valid(sf.now()) {
		return Record{}, fmt.Errorf("%w: session expired", ErrNoSession)
	}
	return rec, nil
}

// Save replaces the stored record. The file is written next to the target
// and renamed, so a crash never leaves half a file.
func (sf *SessionFile) Save(rec Record) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	rec.SavedAt = sf.now().Unix()
	plain, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ct, err := seal(sf.aead, plain)
	if err != nil {
		return err
	}
	out, err := json.Marshal(envelope{Version: fileVersion, Data: base64.StdEncoding.EncodeToString(ct)})
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	if dir := filepath.Dir(sf.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := sf.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, sf.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the stored record. Clearing a missing file is not an error.
func (sf *SessionFile) Clear() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if err := os.Remove(sf.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
