// Package repository provides persistence implementations for user
// accounts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mkrylov/identityd/internal/models"
)

var (
	// ErrDuplicateUsername is returned when an insert or update loses the
	// race on the canonical-username unique index.
	ErrDuplicateUsername = errors.New("repository: username already taken")
	// ErrDuplicateEmail is the email counterpart of ErrDuplicateUsername.
	ErrDuplicateEmail = errors.New("repository: email already taken")
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("repository: user not found")
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// PostgresUserRepository implements user persistence using a PostgreSQL
// database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the
// given database connection. db must be a valid *sql.DB connected to a
// PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

const userColumns = `id, username, username_canonical, email, email_canonical, password_hash, about, last_seen`

// CreateUser inserts a new user row. A unique violation on one of the
// canonical indexes is mapped to ErrDuplicateUsername or ErrDuplicateEmail
// so the caller can report the same outcome as its pre-check.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, username_canonical, email, email_canonical, password_hash, about, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.UsernameCanonical, u.Email, u.EmailCanonical, u.PasswordHash, u.About, u.LastSeen,
	)
	return mapDuplicate(err)
}

// FindByUsername looks a user up by the canonical fold of username.
// Returns ErrNotFound if no row matches.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, canonical string) (*models.User, error) {
	return r.findBy(ctx, `SELECT `+userColumns+` FROM users WHERE username_canonical = $1`, canonical)
}

// FindByEmail looks a user up by the canonical fold of email.
// Returns ErrNotFound if no row matches.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, canonical string) (*models.User, error) {
	return r.findBy(ctx, `SELECT `+userColumns+` FROM users WHERE email_canonical = $1`, canonical)
}

// FindByID looks a user up by primary key. Returns ErrNotFound if no row
// matches.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findBy(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) findBy(ctx context.Context, query, arg string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.UsernameCanonical, &u.Email, &u.EmailCanonical,
		&u.PasswordHash, &u.About, &u.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash for the given user.
func (r *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		id, hash,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateProfile replaces the identity and profile fields of the given
// user. Unique violations map the same way as in CreateUser.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users
		 SET username = $2, username_canonical = $3, email = $4, email_canonical = $5, about = $6
		 WHERE id = $1`,
		u.ID, u.Username, u.UsernameCanonical, u.Email, u.EmailCanonical, u.About,
	)
	if err != nil {
		return mapDuplicate(err)
	}
	return requireRow(res)
}

// TouchLastSeen records activity for the given user.
func (r *PostgresUserRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET last_seen = $2 WHERE id = $1`,
		id, at,
	)
	return err
}

// CanonicalUsernames returns the canonical username of every user.
func (r *PostgresUserRepository) CanonicalUsernames(ctx context.Context) ([]string, error) {
	return r.canonicalColumn(ctx, `SELECT username_canonical FROM users`)
}

// CanonicalEmails returns the canonical email of every user.
func (r *PostgresUserRepository) CanonicalEmails(ctx context.Context) ([]string, error) {
	return r.canonicalColumn(ctx, `SELECT email_canonical FROM users`)
}

func (r *PostgresUserRepository) canonicalColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// mapDuplicate translates a Postgres unique violation into the matching
// duplicate error based on which canonical index rejected the row.
func mapDuplicate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	if strings.Contains(pqErr.Constraint, "email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
