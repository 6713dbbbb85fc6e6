package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack-server/src/models"
)

const userColumns = `
	id, username, email, password_hash, first_name, last_name, timezone, date_format,
	completed_profile, phone_prefix, phone_number, date_of_birth, biography, country,
	city, default_currency, language, created_at_ns, last_login_ns`

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user      models.User
		createdAt int64
		lastLogin sql.NullInt64
	)
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
		&createdAt,
		&lastLogin,
	)
	if err != nil {
		return nil, translate(err)
	}
	user.CreatedAt = fromNanos(createdAt)
	if lastLogin.Valid {
		t := fromNanos(lastLogin.Int64)
		user.LastLogin = &t
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT`+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT`+userColumns+` FROM users WHERE username = ?`, username))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT`+userColumns+` FROM users WHERE lower(email) = lower(?)`, email))
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.DateFormat == "" {
		u.DateFormat = models.DefaultDateFormat
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, date_format, completed_profile, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.DateFormat, u.CompletedProfile, toNanos(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (s *Store) CompleteProfile(ctx context.Context, id, firstName, lastName, timezone string) error {
	return s.execOne(ctx, "complete profile", `
		UPDATE users
		SET first_name = ?, last_name = ?, timezone = ?, completed_profile = 1
		WHERE id = ?`,
		firstName, lastName, timezone, id,
	)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	return s.execOne(ctx, "update profile", `
		UPDATE users
		SET first_name = ?, last_name = ?, email = ?, phone_prefix = ?, phone_number = ?,
			date_of_birth = ?, biography = ?, country = ?, city = ?, timezone = ?,
			default_currency = ?, language = ?, date_format = ?
		WHERE id = ?`,
		p.FirstName, p.LastName, p.Email, p.PhonePrefix, p.PhoneNumber,
		p.DateOfBirth, p.Biography, p.Country, p.City, p.Timezone,
		p.DefaultCurrency, p.Language, p.DateFormat,
		id,
	)
}

func (s *Store) UpdatePasswordByEmail(ctx context.Context, email string, hash []byte) error {
	return s.execOne(ctx, "update password",
		`UPDATE users SET password_hash = ? WHERE lower(email) = lower(?)`, hash, email)
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	return s.execOne(ctx, "update last login",
		`UPDATE users SET last_login_ns = ? WHERE id = ?`, toNanos(time.Now()), id)
}

// DeleteUser removes the user's ledger and summary in the same transaction.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM finances WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return translate(sql.ErrNoRows)
	}
	return tx.Commit()
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
