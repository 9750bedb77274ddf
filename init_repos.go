// Package main: Repository katmanı başlatma.
//
// initRepositories, repository implementasyonlarını oluşturur.
// Repository'ler *sql.DB + dialect alır ve interface döner; aynı SQL hem
// SQLite hem PostgreSQL üzerinde çalışır.
package main

import (
	"github.com/akinalp/opsportal/database"
	"github.com/akinalp/opsportal/repository"
)

// Repositories, repository instance'larını tutan container struct.
type Repositories struct {
	Account repository.AccountRepository
}

// initRepositories, repository'leri veritabanı bağlantısı ile oluşturur.
func initRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Account: repository.NewSQLAccountRepo(db.Conn, db.Dialect),
	}
}
