package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAccounts is an AccountStore kept in process memory, used by tests and
// local runs without Postgres.
type MemoryAccounts struct {
	mu       sync.Mutex
	byEmail  map[string]*Account
	sessions map[string]time.Time
	now      func() time.Time
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byEmail: map[string]*Account{}, sessions: map[string]time.Time{}, now: time.Now}
}

// Add stores a pre-built account, replacing any with the same email.
func (m *MemoryAccounts) Add(acc Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	m.byEmail[strings.ToLower(acc.Email)] = &acc
}

func (m *MemoryAccounts) byID(id string) *Account {
	for _, a := range m.byEmail {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *MemoryAccounts) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *acc, nil
}

func (m *MemoryAccounts) UpsertPassword(ctx context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.byEmail[strings.ToLower(email)]; ok {
		acc.PasswordHash = hash
		return nil
	}
	m.byEmail[strings.ToLower(email)] = &Account{ID: uuid.NewString(), Email: email, PasswordHash: hash, Confirmed: true}
	return nil
}

func (m *MemoryAccounts) ChangeEmail(ctx context.Context, oldEmail, newEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.byEmail[strings.ToLower(oldEmail)]
	if !ok {
		return nil
	}
	delete(m.byEmail, strings.ToLower(oldEmail))
	acc.Email = newEmail
	m.byEmail[strings.ToLower(newEmail)] = acc
	return nil
}

func (m *MemoryAccounts) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID+"|"+tokenHash] = expires
	return nil
}

func (m *MemoryAccounts) SessionValid(ctx context.Context, userID, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.sessions[userID+"|"+tokenHash]
	return ok && m.now().Before(expires), nil
}

func (m *MemoryAccounts) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID+"|"+tokenHash)
	return nil
}

func (m *MemoryAccounts) UpdateLastLogin(ctx context.Context, userID string) error { return nil }

func (m *MemoryAccounts) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.byID(userID); acc != nil {
		acc.MFASecretEnc = secretEnc
		acc.MFAEnabled = false
	}
	return nil
}

func (m *MemoryAccounts) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.byID(userID); acc != nil {
		return acc.MFASecretEnc, nil
	}
	return nil, ErrAccountNotFound
}

func (m *MemoryAccounts) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.byID(userID); acc != nil {
		acc.MFAEnabled = enabled
	}
	return nil
}
