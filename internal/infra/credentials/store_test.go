package credentials

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"pixelforge/internal/infra"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.exec.query = query
	s.exec.args = args
	return nil, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) infra.Row {
	return stubRow{token: s.token, err: s.err}
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, ok, err := store.APIKey(context.Background())
	if err != nil {
		t.Fatalf("APIKey error: %v", err)
	}
	if !ok || key != "abc123" {
		t.Fatalf("expected abc123, got %q (ok=%v)", key, ok)
	}
}

func TestAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: sql.ErrNoRows})
	key, ok, err := store.APIKey(context.Background())
	if err != nil {
		t.Fatalf("APIKey error: %v", err)
	}
	if ok || key != "" {
		t.Fatalf("expected absent key, got %q (ok=%v)", key, ok)
	}
}

func TestAPIKey_PropagatesErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	store := NewStore(&stubExecutor{err: boom})
	if _, _, err := store.APIKey(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestSetAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetAPIKey(context.Background(), " secret "); err != nil {
		t.Fatalf("SetAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != KeyAPIKey {
		t.Fatalf("expected slot name argument, got %T %v", exec.exec.args[0], exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetAPIKeyEmpty(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetAPIKey(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty key")
	}
	if exec.exec.query != "" {
		t.Fatal("expected no write for empty key")
	}
}

func TestStoreRoundTripOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := infra.OpenStateDB(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenStateDB error: %v", err)
	}
	defer db.Close()

	store := NewStore(infra.NewSQLRunner(db, dialect, zerolog.Nop()))
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}

	if _, ok, err := store.APIKey(ctx); err != nil || ok {
		t.Fatalf("expected absent key before set, ok=%v err=%v", ok, err)
	}

	for _, key := range []string{"first-key", "second-key"} {
		if err := store.SetAPIKey(ctx, key); err != nil {
			t.Fatalf("SetAPIKey(%q) error: %v", key, err)
		}
	}

	key, ok, err := store.APIKey(ctx)
	if err != nil {
		t.Fatalf("APIKey error: %v", err)
	}
	if !ok || key != "second-key" {
		t.Fatalf("expected last-set key, got %q (ok=%v)", key, ok)
	}
}
