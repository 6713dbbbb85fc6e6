package postgres

import (
	"context"
	"fmt"

	"fintrack-server/src/db"
	"fintrack-server/src/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `
	id, username, email, password_hash, first_name, last_name, timezone, date_format,
	completed_profile, phone_prefix, phone_number, date_of_birth, biography, country,
	city, default_currency, language, created_at, last_login`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Timezone,
		&user.DateFormat,
		&user.CompletedProfile,
		&user.PhonePrefix,
		&user.PhoneNumber,
		&user.DateOfBirth,
		&user.Biography,
		&user.Country,
		&user.City,
		&user.DefaultCurrency,
		&user.Language,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE username = $1
	`
	return scanUser(s.pool.QueryRow(ctx, query, username))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, date_format, completed_profile)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	format := u.DateFormat
	if format == "" {
		format = models.DefaultDateFormat
	}
	err := s.pool.QueryRow(
		ctx,
		query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		format,
		u.CompletedProfile,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	u.DateFormat = format
	return nil
}

func (s *Store) CompleteProfile(ctx context.Context, id, firstName, lastName, timezone string) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, timezone = $3, completed_profile = TRUE
		WHERE id = $4
	`
	return s.execOne(ctx, "complete profile", query, firstName, lastName, timezone, id)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, phone_prefix = $4, phone_number = $5,
			date_of_birth = $6, biography = $7, country = $8, city = $9, timezone = $10,
			default_currency = $11, language = $12, date_format = $13
		WHERE id = $14
	`
	return s.execOne(ctx, "update profile", query,
		p.FirstName,
		p.LastName,
		p.Email,
		p.PhonePrefix,
		p.PhoneNumber,
		p.DateOfBirth,
		p.Biography,
		p.Country,
		p.City,
		p.Timezone,
		p.DefaultCurrency,
		p.Language,
		p.DateFormat,
		id,
	)
}

func (s *Store) UpdatePasswordByEmail(ctx context.Context, email string, hash []byte) error {
	query := `
		UPDATE users
		SET password_hash = $1
		WHERE lower(email) = lower($2)
	`
	return s.execOne(ctx, "update password", query, hash, email)
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET last_login = NOW()
		WHERE id = $1
	`
	return s.execOne(ctx, "update last login", query, id)
}

// DeleteUser relies on ON DELETE CASCADE for transactions and finances.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	query := `
		DELETE FROM users
		WHERE id = $1;
	`
	return s.execOne(ctx, "delete user", query, id)
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return ids, nil
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, translate(err))
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
