package postgresql

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APIKeyStorage validates raw API keys against HMAC-SHA256 hashes stored
// in the api_keys table. Raw keys never touch the database.
type APIKeyStorage struct {
	pool        *pgxpool.Pool
	encodingKey string
}

func NewAPIKeyStorage(pool *pgxpool.Pool, encodingKey string) *APIKeyStorage {
	return &APIKeyStorage{
		pool:        pool,
		encodingKey: strings.TrimSpace(encodingKey),
	}
}

func (s *APIKeyStorage) Validate(ctx context.Context, rawKey string) (exists bool, isActive bool, err error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return false, false, nil
	}

	err = s.pool.QueryRow(ctx, `
select is_active
from api_keys
where key_hash = $1;
`, hashKey(rawKey, s.encodingKey)).Scan(&isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("select api_keys: %w", err)
	}

	return true, isActive, nil
}

func hashKey(rawKey, encodingKey string) string {
	mac := hmac.New(sha256.New, []byte(encodingKey))
	_, _ = mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}
