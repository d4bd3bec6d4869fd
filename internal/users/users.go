package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CristhianMazon/ecommerce-api-main/internal/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound indicates no user matched the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates a signup/update collided with an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var exists bool
	err = c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, nu.Email).Scan(&exists)
	if err != nil {
		return User{}, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return User{}, fmt.Errorf("%w: %s", ErrEmailTaken, nu.Email)
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, email, role, created_at, updated_at
	`
	var u User
	err = c.db.QueryRowContext(ctx, query, uuid.NewString(), nu.Name, nu.Email, string(hash), auth.RoleUser).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks the email/password pair and returns the user on
// success. A missing user and a wrong password report the same error.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var u User
	err := c.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	u.PasswordHash = ""
	return u, nil
}

func (c *Conf) GetUserByID(ctx context.Context, userID string) (User, error) {
	query := `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := c.db.QueryRowContext(ctx, query, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, fmt.Errorf("%w: id %s", ErrNotFound, userID)
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// UpdateUser applies the non-empty fields of the update to the user's
// profile. An empty password leaves the stored hash untouched.
func (c *Conf) UpdateUser(ctx context.Context, userID string, uu UpdateUser) (User, error) {
	current, err := c.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	name := current.Name
	if uu.Name != "" {
		name = uu.Name
	}
	email := current.Email
	if uu.Email != "" {
		email = uu.Email
	}

	query := `
		UPDATE users
		SET name = $1, email = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, name, email, role, created_at, updated_at
	`
	var u User
	err = c.db.QueryRowContext(ctx, query, name, email, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to update user: %w", err)
	}

	if uu.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(uu.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		if _, err := c.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, string(hash), userID); err != nil {
			return User{}, fmt.Errorf("failed to update password: %w", err)
		}
	}
	return u, nil
}

func (c *Conf) DeleteUser(ctx context.Context, userID string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, userID)
	}
	return nil
}
