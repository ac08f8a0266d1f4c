package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
	cryptoutil "groundops/internal/platform/crypto"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memAccounts struct {
	byEmail  map[string]*Account
	sessions map[string]bool
	lookErr  error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byEmail: map[string]*Account{}, sessions: map[string]bool{}}
}

func (m *memAccounts) add(t *testing.T, id, email, password string, confirmed bool) *Account {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	acc := &Account{ID: id, Email: email, PasswordHash: hash, Confirmed: confirmed}
	m.byEmail[strings.ToLower(email)] = acc
	return acc
}

func (m *memAccounts) byID(id string) *Account {
	for _, a := range m.byEmail {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *memAccounts) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	if m.lookErr != nil {
		return Account{}, m.lookErr
	}
	acc, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *acc, nil
}

func (m *memAccounts) UpsertPassword(ctx context.Context, email, hash string) error {
	if acc, ok := m.byEmail[strings.ToLower(email)]; ok {
		acc.PasswordHash = hash
		return nil
	}
	m.byEmail[strings.ToLower(email)] = &Account{ID: "new-" + email, Email: email, PasswordHash: hash, Confirmed: true}
	return nil
}

func (m *memAccounts) ChangeEmail(ctx context.Context, oldEmail, newEmail string) error {
	acc, ok := m.byEmail[strings.ToLower(oldEmail)]
	if !ok {
		return nil
	}
	delete(m.byEmail, strings.ToLower(oldEmail))
	acc.Email = newEmail
	m.byEmail[strings.ToLower(newEmail)] = acc
	return nil
}

func (m *memAccounts) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	m.sessions[userID+"|"+tokenHash] = true
	return nil
}

func (m *memAccounts) SessionValid(ctx context.Context, userID, tokenHash string) (bool, error) {
	return m.sessions[userID+"|"+tokenHash], nil
}

func (m *memAccounts) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	m.sessions[userID+"|"+tokenHash] = false
	return nil
}

func (m *memAccounts) UpdateLastLogin(ctx context.Context, userID string) error { return nil }

func (m *memAccounts) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	acc := m.byID(userID)
	acc.MFASecretEnc = secretEnc
	acc.MFAEnabled = false
	return nil
}

func (m *memAccounts) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	return m.byID(userID).MFASecretEnc, nil
}

func (m *memAccounts) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	m.byID(userID).MFAEnabled = enabled
	return nil
}

type authFixture struct {
	accounts *memAccounts
	store    *records.MemoryStore
	repo     *records.Repository
	svc      *Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctx := context.Background()
	store := records.NewMemoryStore()
	require.NoError(t, store.InsertDepartment(ctx, "Ramp Operations"))
	require.NoError(t, store.InsertEmployee(ctx, records.Employee{ID: "e-mgr", Name: "Mia", Department: "Ramp Operations", Email: "mia@example.com", Username: "mia", Role: records.RoleManager, Active: true}))
	require.NoError(t, store.InsertEmployee(ctx, records.Employee{ID: "e-old", Name: "Olav", Department: "Ramp Operations", Email: "olav@example.com", Username: "olav", Role: records.RoleEmployee, Active: false}))

	accounts := newMemAccounts()
	accounts.add(t, "u-mgr", "mia@example.com", "s3cret-pass", true)
	accounts.add(t, "u-old", "olav@example.com", "s3cret-pass", true)
	accounts.add(t, "u-new", "new@example.com", "s3cret-pass", false)
	accounts.add(t, "u-fresh", "jo.bloggs@example.com", "s3cret-pass", true)

	crypto, err := cryptoutil.New(testSecret)
	require.NoError(t, err)
	repo := records.NewRepository(store, nil)
	svc := NewService(accounts, repo, crypto, Options{Secret: testSecret, SessionTTL: time.Hour}, nil)
	return &authFixture{accounts: accounts, store: store, repo: repo, svc: svc}
}

func reasonOf(t *testing.T, err error) (string, string) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "unexpected error %v", err)
	return appErr.Code, appErr.Message
}

func TestLoginSuccessIssuesVerifiableSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginRequest{Email: "MIA@example.com", Password: "s3cret-pass", Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, "e-mgr", res.User.EmployeeID)
	assert.Equal(t, "manager", res.User.RoleName)
	assert.False(t, res.Provisioned)

	user, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ramp Operations", user.Department)
	assert.Equal(t, records.RoleManager, user.Actor().Role)

	require.NoError(t, f.svc.Logout(ctx, user))
	_, err = f.svc.Authenticate(ctx, res.Token)
	assert.Equal(t, apperror.KindAuth, apperror.KindOf(err))
}

func TestLoginCredentialFailuresAreGeneric(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	_, errWrong := f.svc.Login(ctx, LoginRequest{Email: "mia@example.com", Password: "wrong-pass"})

	codeA, msgA := reasonOf(t, errUnknown)
	codeB, msgB := reasonOf(t, errWrong)
	assert.Equal(t, apperror.ReasonInvalidCredentials, codeA)
	assert.Equal(t, codeA, codeB)
	assert.Equal(t, msgA, msgB)
}

func TestLoginUnknownEmailPaysPasswordCheck(t *testing.T) {
	f := newAuthFixture(t)
	var hashes []string
	original := checkPassword
	checkPassword = func(hash, password string) error {
		hashes = append(hashes, hash)
		return original(hash, password)
	}
	t.Cleanup(func() { checkPassword = original })

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	code, _ := reasonOf(t, err)
	assert.Equal(t, apperror.ReasonInvalidCredentials, code)
	require.Len(t, hashes, 1)
	assert.Equal(t, dummyHash(), hashes[0])
}

func TestLoginDistinctFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginRequest{Email: "new@example.com", Password: "s3cret-pass"})
	code, _ := reasonOf(t, err)
	assert.Equal(t, apperror.ReasonUnconfirmedAccount, code)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "olav@example.com", Password: "s3cret-pass"})
	code, _ = reasonOf(t, err)
	assert.Equal(t, apperror.ReasonInactiveAccount, code)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "mia@example.com", Password: "s3cret-pass", Role: "admin"})
	code, msg := reasonOf(t, err)
	assert.Equal(t, apperror.ReasonRoleMismatch, code)
	assert.Contains(t, msg, "access level")

	f.accounts.lookErr = errors.New("db down")
	_, err = f.svc.Login(ctx, LoginRequest{Email: "mia@example.com", Password: "s3cret-pass"})
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))
}

func TestLoginProvisionsMissingProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginRequest{Email: "jo.bloggs@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.True(t, res.Provisioned)
	assert.Equal(t, "Jo Bloggs", res.Employee.Name)
	assert.Equal(t, "Unassigned", res.Employee.Department)
	assert.Equal(t, records.RoleEmployee, res.Employee.Role)
	assert.Equal(t, records.DefaultScore, res.Employee.OverallScore)

	snap := f.repo.Snapshot(ctx)
	assert.True(t, snap.HasDepartment("Unassigned"))
	_, ok := snap.Employee(res.Employee.ID)
	assert.True(t, ok)

	again, err := f.svc.Login(ctx, LoginRequest{Email: "jo.bloggs@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.False(t, again.Provisioned)
	assert.Equal(t, res.Employee.ID, again.Employee.ID)
}

func TestMFAFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := UserContext{UserID: "u-mgr", Email: "mia@example.com"}

	setup, err := f.svc.SetupMFA(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://")
	assert.NotEqual(t, setup.Secret, string(f.accounts.byID("u-mgr").MFASecretEnc), "secret is sealed at rest")

	err = f.svc.EnableMFA(ctx, user, "000000")
	if err != nil {
		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	}
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.svc.EnableMFA(ctx, user, code))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "mia@example.com", Password: "s3cret-pass"})
	c, _ := reasonOf(t, err)
	assert.Equal(t, apperror.ReasonMFARequired, c)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "mia@example.com", Password: "s3cret-pass", MFACode: code})
	require.NoError(t, err)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Authenticate(context.Background(), "not-a-jwt")
	assert.Equal(t, apperror.KindAuth, apperror.KindOf(err))
}

func TestSetPasswordHashes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetPassword(ctx, "mia@example.com", "brand-new-pass"))
	acc := f.accounts.byEmail["mia@example.com"]
	assert.NotEqual(t, "brand-new-pass", acc.PasswordHash)
	assert.NoError(t, CheckPassword(acc.PasswordHash, "brand-new-pass"))

	err := f.svc.SetPassword(ctx, "mia@example.com", "short")
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}
