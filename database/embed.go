// Package database embed dosyası; migration SQL dosyalarını binary'ye gömer.
//
// Her dialect'in kendi dizini vardır; şema aynıdır, sadece tip ve
// auto-increment sözdizimi farklıdır.
package database

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embeddedMigrations embed.FS

// Migrations, verilen dialect'in migration dizinini fs.FS olarak döner.
func Migrations(d Dialect) (fs.FS, error) {
	switch d {
	case DialectSQLite, DialectPostgres:
		sub, err := fs.Sub(embeddedMigrations, "migrations/"+string(d))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s migrations: %w", d, err)
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", d)
	}
}
