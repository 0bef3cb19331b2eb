package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TokenInfo is the cached vendor access token. ExpiresAt is a unix
// timestamp; it stays float64 so files written by other tooling with
// fractional seconds still load.
type TokenInfo struct {
	AccessToken string  `json:"access_token"`
	ExpiresAt   float64 `json:"expires_at"`
}

// Valid reports whether the cached token can still be used at now.
func (t *TokenInfo) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && float64(now.Unix()) < t.ExpiresAt
}

// Credentials is the full content of the credential file. ClientID and
// ClientSecret are preserved across token refreshes.
type Credentials struct {
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	TokenInfo    *TokenInfo `json:"token_info,omitempty"`
}

// Store reads and writes the credential file as a whole. Writes are a
// plain rewrite, not atomic; single-process single-writer use is assumed.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

func (s *Store) Load() (Credentials, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return Credentials{}, fmt.Errorf("open credential file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var c Credentials
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return Credentials{}, fmt.Errorf("decode credential file %s: %w", s.path, err)
	}
	return c, nil
}

func (s *Store) Save(c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file %s: %w", s.path, err)
	}
	return nil
}
