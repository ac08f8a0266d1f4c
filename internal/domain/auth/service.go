package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"groundops/internal/domain/records"
	"groundops/internal/platform/apperror"
	cryptoutil "groundops/internal/platform/crypto"
)

const mfaIssuer = "GroundOps"

var (
	checkPassword = CheckPassword
	dummyHash     = sync.OnceValue(func() string {
		hash, _ := HashPassword("unknown-account-placeholder")
		return hash
	})
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	MFACode  string `json:"mfaCode,omitempty"`
}

type LoginResult struct {
	Token       string           `json:"token"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	User        UserContext      `json:"user"`
	Employee    records.Employee `json:"employee"`
	Provisioned bool             `json:"provisioned"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type Options struct {
	Secret              string
	SessionTTL          time.Duration
	ProvisionDepartment string
	DefaultScore        int
}

// Service is the identity boundary: it checks credentials, maps accounts to
// employee profiles and tracks sessions.
type Service struct {
	accounts AccountStore
	repo     *records.Repository
	crypto   *cryptoutil.Service
	opts     Options
	logger   *zap.Logger
}

func NewService(accounts AccountStore, repo *records.Repository, crypto *cryptoutil.Service, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 8 * time.Hour
	}
	if opts.ProvisionDepartment == "" {
		opts.ProvisionDepartment = "Unassigned"
	}
	if opts.DefaultScore == 0 {
		opts.DefaultScore = records.DefaultScore
	}
	return &Service{accounts: accounts, repo: repo, crypto: crypto, opts: opts, logger: logger.Named("auth")}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return LoginResult{}, apperror.Auth(apperror.ReasonInvalidCredentials)
	}

	account, err := s.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			s.logger.Warn("account lookup failed", zap.Error(err))
			return LoginResult{}, apperror.Persistence(err, "identity service unavailable")
		}
		// same bcrypt cost as a wrong password so response time does not reveal the email
		_ = checkPassword(dummyHash(), req.Password)
		return LoginResult{}, apperror.Auth(apperror.ReasonInvalidCredentials)
	}
	if err := checkPassword(account.PasswordHash, req.Password); err != nil {
		return LoginResult{}, apperror.Auth(apperror.ReasonInvalidCredentials)
	}
	if !account.Confirmed {
		return LoginResult{}, apperror.Auth(apperror.ReasonUnconfirmedAccount)
	}
	if account.MFAEnabled {
		if err := s.checkMFA(account, req.MFACode); err != nil {
			return LoginResult{}, err
		}
	}

	emp, provisioned, err := s.employeeFor(ctx, account.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if !emp.Active {
		return LoginResult{}, apperror.Auth(apperror.ReasonInactiveAccount)
	}
	if req.Role != "" {
		requested, ok := records.ParseRole(req.Role)
		if !ok || requested != emp.Role {
			return LoginResult{}, apperror.Auth(apperror.ReasonRoleMismatch)
		}
	}

	sessionID, err := newSessionToken()
	if err != nil {
		return LoginResult{}, err
	}
	expires := time.Now().Add(s.opts.SessionTTL)
	if err := s.accounts.CreateSession(ctx, account.ID, HashToken(sessionID), expires); err != nil {
		return LoginResult{}, apperror.Persistence(err, "failed to start session")
	}
	token, err := GenerateToken(s.opts.Secret, Claims{
		UserID:     account.ID,
		EmployeeID: emp.ID,
		RoleName:   string(emp.Role),
		SessionID:  sessionID,
	}, s.opts.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("update last_login failed", zap.String("user_id", account.ID), zap.Error(err))
	}

	return LoginResult{
		Token:       token,
		ExpiresAt:   expires.UTC(),
		User:        userContextFor(account.ID, sessionID, emp),
		Employee:    emp,
		Provisioned: provisioned,
	}, nil
}

func (s *Service) checkMFA(account Account, code string) error {
	if strings.TrimSpace(code) == "" {
		return apperror.Auth(apperror.ReasonMFARequired)
	}
	secret, err := s.crypto.OpenString(account.MFASecretEnc)
	if err != nil || secret == "" {
		return apperror.Auth(apperror.ReasonMFAInvalid)
	}
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return apperror.Auth(apperror.ReasonMFAInvalid)
	}
	return nil
}

// employeeFor maps an account to its employee profile, creating a default
// profile the first time an account without one logs in.
func (s *Service) employeeFor(ctx context.Context, email string) (records.Employee, bool, error) {
	snap := s.repo.Snapshot(ctx)
	for _, e := range snap.Employees {
		if strings.EqualFold(e.Email, email) {
			return e, false, nil
		}
	}

	store := s.repo.Store()
	if !snap.HasDepartment(s.opts.ProvisionDepartment) {
		if err := store.InsertDepartment(ctx, s.opts.ProvisionDepartment); err != nil && !errors.Is(err, records.ErrDuplicate) {
			return records.Employee{}, false, apperror.Persistence(err, "failed to provision profile")
		}
	}

	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	username := local
	for _, e := range snap.Employees {
		if strings.EqualFold(e.Username, username) {
			username = local + "-" + uuid.NewString()[:8]
			break
		}
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	emp := records.Employee{
		ID:           uuid.NewString(),
		Name:         displayName(local),
		Department:   s.opts.ProvisionDepartment,
		Email:        email,
		Username:     username,
		Active:       true,
		HireDate:     &today,
		Role:         records.RoleEmployee,
		OverallScore: s.opts.DefaultScore,
		CurrentScore: s.opts.DefaultScore,
	}
	if err := store.InsertEmployee(ctx, emp); err != nil {
		return records.Employee{}, false, apperror.Persistence(err, "failed to provision profile")
	}
	s.repo.Reload(ctx)
	s.logger.Info("profile provisioned on first login", zap.String("employee_id", emp.ID))
	return emp, true, nil
}

// displayName turns "ana.silva" into "Ana Silva".
func displayName(local string) string {
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return local
	}
	return strings.Join(parts, " ")
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	if err := s.accounts.RevokeSession(ctx, user.UserID, HashToken(user.SessionID)); err != nil {
		return apperror.Persistence(err, "failed to end session")
	}
	return nil
}

// Authenticate verifies a bearer token against its session row and resolves
// the actor from the current employee record.
func (s *Service) Authenticate(ctx context.Context, token string) (UserContext, error) {
	claims, err := ParseToken(s.opts.Secret, token)
	if err != nil {
		return UserContext{}, apperror.Auth(apperror.ReasonUnauthenticated)
	}
	valid, err := s.accounts.SessionValid(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil {
		return UserContext{}, apperror.Persistence(err, "session check failed")
	}
	if !valid {
		return UserContext{}, apperror.Auth(apperror.ReasonUnauthenticated)
	}
	emp, ok := s.repo.Snapshot(ctx).Employee(claims.EmployeeID)
	if !ok || !emp.Active {
		return UserContext{}, apperror.Auth(apperror.ReasonUnauthenticated)
	}
	return userContextFor(claims.UserID, claims.SessionID, emp), nil
}

func (s *Service) SetupMFA(ctx context.Context, user UserContext) (MFASetup, error) {
	if !s.crypto.Configured() {
		return MFASetup{}, apperror.Configuration("mfa requires DATA_ENCRYPTION_KEY")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	sealed, err := s.crypto.SealString(key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.accounts.UpdateMFASecret(ctx, user.UserID, sealed); err != nil {
		return MFASetup{}, apperror.Persistence(err, "failed to store mfa secret")
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, user UserContext, code string) error {
	if !s.crypto.Configured() {
		return apperror.Configuration("mfa requires DATA_ENCRYPTION_KEY")
	}
	sealed, err := s.accounts.GetMFASecret(ctx, user.UserID)
	if err != nil || len(sealed) == 0 {
		return apperror.Invalid("mfa setup required", apperror.FieldIssue{Field: "code", Reason: "run mfa setup first"})
	}
	secret, err := s.crypto.OpenString(sealed)
	if err != nil {
		return apperror.Auth(apperror.ReasonMFAInvalid)
	}
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return apperror.Invalid("invalid mfa code", apperror.FieldIssue{Field: "code", Reason: "does not match"})
	}
	if err := s.accounts.SetMFAEnabled(ctx, user.UserID, true); err != nil {
		return apperror.Persistence(err, "failed to enable mfa")
	}
	return nil
}

// SetPassword hashes password and stores it on the account for email.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLength {
		return apperror.Invalid("password too short", apperror.FieldIssue{Field: "password", Reason: "must be at least 8 characters"})
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.accounts.UpsertPassword(ctx, email, hash)
}

func (s *Service) ChangeEmail(ctx context.Context, oldEmail, newEmail string) error {
	return s.accounts.ChangeEmail(ctx, oldEmail, newEmail)
}
