package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// CredentialRepository persists the signed-in account's token pair in a single row.
//
// It satisfies services.TokenStore.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Token returns the stored pair, or nil when no credentials are stored.
func (r *CredentialRepository) Token() (*oauth2.Token, error) {
	query := `SELECT access_token, refresh_token, token_type, expires_at FROM credentials WHERE id = 1`

	var (
		token     oauth2.Token
		expiresAt sql.NullTime
	)
	err := r.db.QueryRow(query).Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	if expiresAt.Valid {
		token.Expiry = expiresAt.Time
	}
	return &token, nil
}

// SaveToken replaces the stored pair.
func (r *CredentialRepository) SaveToken(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	var expiry *time.Time
	if !token.Expiry.IsZero() {
		expiry = &token.Expiry
	}

	query := `
		INSERT INTO credentials (id, access_token, refresh_token, token_type, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, token.AccessToken, token.RefreshToken, tokenType, nullable(expiry), time.Now()); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// ClearToken removes the stored pair. Clearing an empty store is not an error.
func (r *CredentialRepository) ClearToken() error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
