package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
)

// Credentials are the persisted tokens of a signed-in user.
type Credentials struct {
	IDToken      string          `json:"idToken"`
	RefreshToken string          `json:"refreshToken"`
	Expiry       time.Time       `json:"expiry"`
	Identity     models.Identity `json:"identity"`
}

// Valid reports whether the ID token is still usable at now, allowing skew.
func (c *Credentials) Valid(now time.Time, skew time.Duration) bool {
	return c.IDToken != "" && now.Add(skew).Before(c.Expiry)
}

// FileStore keeps [Credentials] in a JSON file readable only by the owner.
//
// A sibling ".lock" file serializes access between concurrent movli processes.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a [FileStore] for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the credentials file path.
func (f *FileStore) Path() string { return f.path }

// Load reads the stored credentials. It returns nil without error when none are stored.
func (f *FileStore) Load() (*Credentials, error) {
	if err := f.acquire(); err != nil {
		return nil, err
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &creds, nil
}

// Save writes creds atomically with mode 0600.
func (f *FileStore) Save(creds *Credentials) error {
	if err := f.acquire(); err != nil {
		return err
	}
	defer f.lock.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Clear removes the stored credentials.
func (f *FileStore) Clear() error {
	if err := f.acquire(); err != nil {
		return err
	}
	defer f.lock.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) acquire() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock session file: %w", err)
	}
	return nil
}
