package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akinalp/opsportal/database"
	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
)

// accountColumns, SELECT ve RETURNING'de kullanılan kolon listesi.
// scanAccount ile aynı sırada olmalı.
const accountColumns = `id, username, password_hash, role, email, full_name, phone, designation, department, is_active, created_at`

// sqlAccountRepo, AccountRepository'nin database/sql implementasyonu.
// SQL "?" placeholder ile yazılır; dialect.Rebind postgres için "$n"e çevirir.
type sqlAccountRepo struct {
	db      database.TxQuerier
	dialect database.Dialect
}

// NewSQLAccountRepo, constructor. Interface döner; Dependency Inversion.
func NewSQLAccountRepo(db database.TxQuerier, dialect database.Dialect) AccountRepository {
	return &sqlAccountRepo{db: db, dialect: dialect}
}

// rowScanner, *sql.Row ve *sql.Rows'un ortak Scan method'u.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Email, &a.FullName,
		&a.Phone, &a.Designation, &a.Department, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *sqlAccountRepo) Create(ctx context.Context, account *models.Account) error {
	query := r.dialect.Rebind(`
		INSERT INTO users (username, password_hash, role, email, full_name, phone, designation, department, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`)

	err := r.db.QueryRowContext(ctx, query,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.Email,
		account.FullName,
		account.Phone,
		account.Designation,
		account.Department,
		account.IsActive,
	).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s already exists", pkg.ErrAlreadyExists, field)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *sqlAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := r.dialect.Rebind(`SELECT ` + accountColumns + ` FROM users WHERE id = ?`)

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return account, nil
}

func (r *sqlAccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := r.dialect.Rebind(`SELECT ` + accountColumns + ` FROM users WHERE username = ?`)

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return account, nil
}

func (r *sqlAccountRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := r.dialect.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ? OR email = ?)`)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account uniqueness: %w", err)
	}
	return exists, nil
}

func (r *sqlAccountRepo) List(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

func (r *sqlAccountRepo) Update(ctx context.Context, id int64, req *models.UpdateAccountRequest) (*models.Account, error) {
	query := r.dialect.Rebind(`
		UPDATE users
		SET role        = COALESCE(?, role),
		    full_name   = COALESCE(?, full_name),
		    phone       = COALESCE(?, phone),
		    designation = COALESCE(?, designation),
		    department  = COALESCE(?, department),
		    is_active   = COALESCE(?, is_active)
		WHERE id = ?
		RETURNING ` + accountColumns)

	var role any
	if req.Role != nil {
		role = string(*req.Role)
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx, query,
		role, req.FullName, req.Phone, req.Designation, req.Department, req.IsActive, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

func (r *sqlAccountRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := r.dialect.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result)
}

func (r *sqlAccountRepo) Delete(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM users WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireAffected(result)
}

func (r *sqlAccountRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// requireAffected, 0 satır etkilendiyse ErrNotFound döner.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: account not found", pkg.ErrNotFound)
	}
	return nil
}

// uniqueViolation, hatanın UNIQUE constraint ihlali olup olmadığını ve hangi
// alanın çakıştığını döner.
//
// PostgreSQL: pgconn.PgError, SQLSTATE 23505, constraint adı "users_email_key".
// SQLite: "UNIQUE constraint failed: users.email" mesajı.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		if strings.Contains(pgErr.ConstraintName, "email") {
			return "email", true
		}
		return "username", true
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return "", false
	}
	if strings.Contains(msg, "users.email") {
		return "email", true
	}
	return "username", true
}
