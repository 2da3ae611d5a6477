package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/models"
)

const userColumns = "u.id, u.email, u.name, u.password_hash, u.created_at"

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user into the database.
// A duplicate email is reported as a conflict.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.conn().exec(ctx,
		"INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt,
	)
	if errs.KindOf(err) == errs.KindConflict {
		return errs.Conflict("user with email %s already exists", user.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.conn().queryRow(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("user not found: %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.conn().queryRow(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("user not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Users that don't exist are omitted from the result.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.conn().query(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
