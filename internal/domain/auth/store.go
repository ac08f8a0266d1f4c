package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"groundops/internal/domain/records"
)

var ErrAccountNotFound = errors.New("account not found")

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Confirmed    bool
	MFAEnabled   bool
	MFASecretEnc []byte
}

// AccountStore persists login accounts and sessions.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	UpsertPassword(ctx context.Context, email, hash string) error
	ChangeEmail(ctx context.Context, oldEmail, newEmail string) error
	CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error
	SessionValid(ctx context.Context, userID, tokenHash string) (bool, error)
	RevokeSession(ctx context.Context, userID, tokenHash string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	GetMFASecret(ctx context.Context, userID string) ([]byte, error)
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

type Store struct {
	DB records.DB
}

func NewStore(db records.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	var out Account
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, password_hash, confirmed, mfa_enabled, mfa_secret_enc
    FROM users
    WHERE lower(email) = lower($1)
  `, email).Scan(&out.ID, &out.Email, &out.PasswordHash, &out.Confirmed, &out.MFAEnabled, &out.MFASecretEnc)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return out, err
}

// UpsertPassword creates a confirmed account for email or replaces its password.
func (s *Store) UpsertPassword(ctx context.Context, email, hash string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO users (id, email, password_hash, confirmed)
    VALUES ($1, $2, $3, true)
    ON CONFLICT ((lower(email))) DO UPDATE SET password_hash = EXCLUDED.password_hash
  `, uuid.NewString(), email, hash)
	return err
}

func (s *Store) ChangeEmail(ctx context.Context, oldEmail, newEmail string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET email = $2 WHERE lower(email) = lower($1)", oldEmail, newEmail)
	return err
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (id, user_id, token_hash, expires_at)
    VALUES ($1,$2,$3,$4)
  `, uuid.NewString(), userID, tokenHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID, tokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND token_hash = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, tokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2", userID, tokenHash)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	var secretEnc []byte
	if err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM users WHERE id = $1", userID).Scan(&secretEnc); err != nil {
		return nil, err
	}
	return secretEnc, nil
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}
