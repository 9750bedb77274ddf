// Package database, Credential Store bağlantısını ve migration sistemini yönetir.
//
// İki driver desteklenir:
//   - "sqlite"   → modernc.org/sqlite (pure-Go, CGO gerekmez); varsayılan
//   - "postgres" → github.com/jackc/pgx/v5/stdlib (database/sql adapter'ı)
//
// Repository'ler SQL'i "?" placeholder ile yazar; Dialect.Rebind postgres için
// "$1, $2, ..." formatına çevirir. Böylece tek repository implementasyonu iki
// veritabanında da çalışır.
package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver'ını kaydeder
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // "sqlite" driver'ını kaydeder
)

// Dialect, SQL lehçesi.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// recoverableErrors, migration sırasında tolere edilebilen hata pattern'larıdır.
// Yarım kalan bir migration tekrar çalıştırıldığında kolon zaten eklenmiş olabilir.
var recoverableErrors = []string{
	"duplicate column name",           // sqlite
	"already exists (SQLSTATE 42701)", // postgres duplicate_column
}

// DB, veritabanı bağlantısını saran struct.
// *sql.DB thread-safe bir connection pool'dur.
type DB struct {
	Conn    *sql.DB
	Dialect Dialect
	log     *zap.Logger
}

// New, bağlantıyı açar ve dialect'e ait gömülü migration'ları çalıştırır.
//
// driver: "sqlite" veya "postgres"
// dsn: sqlite için dosya yolu (ya da "file::memory:?cache=shared"), postgres için URL.
func New(driver, dsn string, log *zap.Logger) (*DB, error) {
	dialect := Dialect(driver)

	var (
		conn *sql.DB
		err  error
	)
	switch dialect {
	case DialectSQLite:
		conn, err = openSQLite(dsn)
	case DialectPostgres:
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, Dialect: dialect, log: log.Named("database")}

	migrations, err := Migrations(dialect)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.runMigrations(migrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db.log.Info("connected and migrations applied", zap.String("driver", driver))
	return db, nil
}

// openSQLite, dosya dizinini oluşturur ve foreign key + WAL pragma'ları ile bağlanır.
func openSQLite(dsn string) (*sql.DB, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite", dsn+sep+"_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// SQLite tek yazar kabul eder; in-memory veritabanı da tek bağlantıda yaşar.
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Close, veritabanı bağlantısını kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// Rebind, "?" placeholder'larını dialect'in formatına çevirir.
// String literal içindeki soru işaretlerine dokunmaz.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inString = !inString
		}
		if ch == '?' && !inString {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// runMigrations, migration dosyalarını sırayla çalıştırır.
// schema_migrations tablosu hangi dosyaların uygulandığını takip eder; sonraki
// başlatmalarda sadece yeni dosyalar çalışır.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	applied := make(map[string]bool)
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate migration rows: %w", err)
	}
	rows.Close()

	for _, file := range sqlFiles {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}

		if _, err := db.Conn.Exec(
			db.Dialect.Rebind("INSERT INTO schema_migrations (filename) VALUES (?)"), file,
		); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		db.log.Info("migration applied", zap.String("file", file))
	}

	return nil
}

// execStatements, bir migration dosyasını statement-by-statement çalıştırır ve
// recoverable hataları atlar.
func (db *DB) execStatements(filename, content string) error {
	statements := splitStatements(content)

	for i, stmt := range statements {
		if _, err := db.Conn.Exec(stmt); err != nil {
			errMsg := err.Error()
			recoverable := false
			for _, pattern := range recoverableErrors {
				if strings.Contains(errMsg, pattern) {
					recoverable = true
					break
				}
			}

			if recoverable {
				db.log.Warn("migration statement skipped",
					zap.String("file", filename), zap.Int("statement", i+1), zap.Error(err))
				continue
			}

			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}

	return nil
}

// splitStatements, SQL metnini noktalı virgülden böler; tek tırnaklı string
// literal'lerin ve "--" yorum satırlarının içindeki noktalı virgülleri yoksayar.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if !inString && ch == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(ch)
				current.WriteByte(sql[i+1])
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			if s := strings.TrimSpace(current.String()); s != "" {
				statements = append(statements, s)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		statements = append(statements, s)
	}

	return statements
}
