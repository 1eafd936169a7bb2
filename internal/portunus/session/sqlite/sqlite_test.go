package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/db"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/logging"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session"
	sqlitestore "github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/session/sqlite"
)

// openTestBackend returns a Backend over a private in-memory database with
// production migrations applied.
func openTestBackend(t *testing.T) (*sqlitestore.Backend, *sql.DB) {
	t.Helper()

	conn, err := db.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	w := db.NewWorker(conn)
	t.Cleanup(func() {
		w.Close()
		conn.Close()
	})
	return sqlitestore.New(conn, w), conn
}

func TestBackend_GetMissing(t *testing.T) {
	b, _ := openTestBackend(t)

	_, ok, err := b.Get(context.Background(), session.TokenKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing key")
	}
}

func TestBackend_PutOverwrites(t *testing.T) {
	b, conn := openTestBackend(t)
	ctx := context.Background()

	if err := b.Put(ctx, session.TokenKey, "first"); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if err := b.Put(ctx, session.TokenKey, "second"); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	v, ok, err := b.Get(ctx, session.TokenKey)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v != "second" {
		t.Errorf("expected second, got %q", v)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM client_state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after overwrite, got %d", count)
	}
}

func TestBackend_Delete(t *testing.T) {
	b, _ := openTestBackend(t)
	ctx := context.Background()

	_ = b.Put(ctx, session.TokenKey, "tok")
	if err := b.Delete(ctx, session.TokenKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, session.TokenKey); ok {
		t.Error("expected key gone after Delete")
	}
}

func TestBackend_SessionTokenLifecycle(t *testing.T) {
	b, _ := openTestBackend(t)
	s := session.New(b, logging.Discard())
	ctx := context.Background()

	if err := s.SetToken(ctx, "tok-123"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	tok, err := s.Token(ctx)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "tok-123" {
		t.Errorf("expected tok-123, got %q", tok)
	}

	if err := s.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if tok, _ := s.Token(ctx); tok != "" {
		t.Errorf("expected empty token, got %q", tok)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	_, conn := openTestBackend(t)

	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 applied migrations, got %d", n)
	}
}
