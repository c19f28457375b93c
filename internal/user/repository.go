package user

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, username, email, password_hash, profile_image, bio,
	is_email_verified, is_online, last_seen, created_at`

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfileImage,
		&u.Bio, &u.IsEmailVerified, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// CheckTaken reports which of username/email already belong to an account.
func (r *Repository) CheckTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	query := `SELECT BOOL_OR(username = $1), BOOL_OR(email = $2) FROM users WHERE username = $1 OR email = $2`

	var u, e sql.NullBool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&u, &e); err != nil {
		return false, false, err
	}
	return u.Valid && u.Bool, e.Valid && e.Bool, nil
}

func (r *Repository) CreateUser(ctx context.Context, u *User, verificationToken string, verificationExpires time.Time) (int64, error) {
	query := `
		INSERT INTO users (username, email, password_hash, email_verification_token, email_verification_expires)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash,
		verificationToken, verificationExpires).Scan(&id)
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// VerifyEmail consumes an unexpired verification token. Returns
// ErrUserNotFound when the token is unknown or expired.
func (r *Repository) VerifyEmail(ctx context.Context, token string) error {
	query := `
		UPDATE users
		SET is_email_verified = TRUE,
		    email_verification_token = NULL,
		    email_verification_expires = NULL,
		    updated_at = NOW()
		WHERE email_verification_token = $1 AND email_verification_expires > NOW()
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) SetPasswordResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	query := `UPDATE users SET password_reset_token = $2, password_reset_expires = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, token, expires)
	return err
}

func (r *Repository) ClearPasswordResetToken(ctx context.Context, id int64) error {
	query := `UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ResetPassword consumes an unexpired reset token and installs a new hash.
func (r *Repository) ResetPassword(ctx context.Context, token, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2,
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    updated_at = NOW()
		WHERE password_reset_token = $1 AND password_reset_expires > NOW()
	`
	res, err := r.db.ExecContext(ctx, query, token, passwordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) SetOnline(ctx context.Context, id int64, online bool) error {
	query := `UPDATE users SET is_online = $2, last_seen = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, online)
	return err
}

func (r *Repository) IsUsernameTakenByOther(ctx context.Context, username string, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, username, id).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id int64, req *UpdateProfileRequest) (*User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
		    bio = COALESCE($3, bio),
		    profile_image = COALESCE($4, profile_image),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, req.Username, req.Bio, req.ProfileImage))
}

// Search matches username or email substrings, excluding the caller.
func (r *Repository) Search(ctx context.Context, callerID int64, search string) ([]PublicUser, error) {
	query := `
		SELECT id, username, email, profile_image, is_online, last_seen
		FROM users
		WHERE id <> $1 AND (username ILIKE $2 OR email ILIKE $2)
		ORDER BY username
		LIMIT 20
	`
	rows, err := r.db.QueryContext(ctx, query, callerID, "%"+search+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []PublicUser
	for rows.Next() {
		var u PublicUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.ProfileImage, &u.IsOnline, &u.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
