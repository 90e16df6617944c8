package credentials

import (
	"context"
	"errors"
	"strings"

	"pixelforge/internal/infra"
	"pixelforge/internal/sqlinline"
)

// KeyAPIKey names the single state slot holding the Gemini API key.
const KeyAPIKey = "pixelforge.apiKey"

// Store is the process-wide credential slot. It starts absent, is written
// only by SetAPIKey and is never cleared.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Migrate creates the backing state table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QCreateStateTable)
	return err
}

// APIKey returns the stored key. A key that was never set is reported as
// absent, not as an error.
func (s *Store) APIKey(ctx context.Context) (string, bool, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectState, KeyAPIKey)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// SetAPIKey overwrites the slot unconditionally.
func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertState, KeyAPIKey, key)
	return err
}
