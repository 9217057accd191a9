package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mediaref/clipscan/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// User management methods

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, api_key, quota, used_quota, quota_reset_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Email,
		string(hashedPassword),
		apiKey,
		user.Quota,
		0,
		time.Now().Add(24*time.Hour),
		user.IsActive,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.APIKey = apiKey
	return nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, api_key, quota, used_quota, quota_reset_at, is_active, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.APIKey,
		&user.Quota,
		&user.UsedQuota,
		&user.QuotaResetAt,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, api_key, quota, used_quota, quota_reset_at, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.APIKey,
		&user.Quota,
		&user.UsedQuota,
		&user.QuotaResetAt,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ValidateAPIKey validates an API key and returns the user
func (r *Repository) ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, api_key, quota, used_quota, quota_reset_at, is_active, created_at, updated_at
		FROM users
		WHERE api_key = $1
	`

	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, apiKey).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.APIKey,
		&user.Quota,
		&user.UsedQuota,
		&user.QuotaResetAt,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("invalid API key")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to validate API key: %w", err)
	}

	return &user, nil
}

// CheckQuota checks if the user can start another scan today
func (r *Repository) CheckQuota(ctx context.Context, userID string) (bool, error) {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}

	// Reset quota if expired
	if time.Now().After(user.QuotaResetAt) {
		if err := r.ResetUserQuota(ctx, userID); err != nil {
			return false, err
		}
		return true, nil
	}

	return user.UsedQuota < user.Quota, nil
}

// IncrementQuota increments user's used quota
func (r *Repository) IncrementQuota(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET used_quota = used_quota + 1
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, userID)
	return err
}

// ResetUserQuota resets a user's quota
func (r *Repository) ResetUserQuota(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET used_quota = 0,
		    quota_reset_at = CURRENT_TIMESTAMP + INTERVAL '1 day'
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, userID)
	return err
}

func generateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
