package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRebind(t *testing.T) {
	q := "UPDATE users SET role = ?, full_name = '?' WHERE id = ?"

	if got := DialectSQLite.Rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}

	want := "UPDATE users SET role = $1, full_name = '?' WHERE id = $2"
	if got := DialectPostgres.Rebind(q); got != want {
		t.Fatalf("postgres rebind = %q, want %q", got, want)
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- yorum; noktalı virgül içerir
CREATE TABLE a (x TEXT DEFAULT 'a;b');
INSERT INTO a VALUES ('it''s');
`
	stmts := splitStatements(sql)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[1] != "INSERT INTO a VALUES ('it''s')" {
		t.Fatalf("unexpected second statement %q", stmts[1])
	}
}

func TestNewSQLiteAppliesMigrationsOnce(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"

	db, err := New("sqlite", dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected applied migrations to be recorded")
	}

	// İkinci çalıştırma hiçbir şeyi tekrar uygulamamalı.
	migrations, err := Migrations(DialectSQLite)
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if err := db.runMigrations(migrations); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}

	var again int
	if err := db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&again); err != nil {
		t.Fatalf("recount migrations: %v", err)
	}
	if again != n {
		t.Fatalf("migrations re-applied: %d → %d", n, again)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New("mysql", "x", zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db, err := New("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared", zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	boom := errors.New("boom")

	err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, role) VALUES ('tmp', 'x', 'user')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.Conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("insert should have been rolled back, found %d rows", n)
	}
}
