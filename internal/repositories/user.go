package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
)

var _ models.Repository[*models.User] = (*UserRepository)(nil)

// UserRepository implements [models.Repository] for the cached [models.User] profile.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user with its server-assigned id
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.Exec(query, user.ID(), user.Email(), user.Name(), user.CreatedAt(), user.UpdatedAt()); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Save inserts the user or refreshes the cached copy when it already exists.
func (r *UserRepository) Save(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, user.ID(), user.Email(), user.Name(), user.CreatedAt(), now); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Current returns the most recently saved profile, which belongs to the signed-in account.
func (r *UserRepository) Current() (*models.User, error) {
	query := `SELECT id, email, name, created_at, updated_at FROM users ORDER BY updated_at DESC LIMIT 1`

	user, err := scanUser(r.db.QueryRow(query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE users SET email = ?, name = ?, updated_at = ? WHERE id = ?`,
		user.Email(), user.Name(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, user.ID())
	}
	return nil
}

// Delete removes a user by ID
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return nil
}

// Clear removes every cached profile, as on logout.
func (r *UserRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

// List retrieves all users matching the given criteria
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT id, email, name, created_at, updated_at FROM users WHERE 1 = 1`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		id, email, name      string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &email, &name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user := models.NewUser(id, name, email)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	return user, nil
}
