package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"semaphore/roster/internal/auth"
	"semaphore/roster/internal/crypto"
	"semaphore/roster/internal/limiter"
	"semaphore/roster/internal/metrics"
	"semaphore/roster/internal/model"
	"semaphore/roster/internal/repository"
)

type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
	BcryptCost int
}

type RegisterInput struct {
	Email     string  `json:"email" validate:"required"`
	Password  string  `json:"password" validate:"required"`
	FirstName string  `json:"firstName" validate:"required"`
	LastName  string  `json:"lastName" validate:"required"`
	Role      string  `json:"role" validate:"required"`
	Phone     *string `json:"phone,omitempty"`
}

func (in *RegisterInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Role = strings.TrimSpace(in.Role)
	in.Phone = trimmed(in.Phone)
}

// AccountView is the public projection of an account; it never carries the credential.
type AccountView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	Phone     *string   `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	Token string      `json:"token"`
	User  AccountView `json:"user"`
}

type AuthService struct {
	cfg      AuthConfig
	accounts AccountStore
	limiter  LoginLimiter
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
}

// NewAuthService wires the auth flows. limiter and m may be nil.
func NewAuthService(cfg AuthConfig, accounts AccountStore, limiter LoginLimiter, m *metrics.Metrics, logger *zap.Logger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = crypto.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		limiter:  limiter,
		metrics:  m,
		logger:   logger,
		validate: newValidator(),
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}

	if err := s.checkLimiter(ctx, email); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetActiveAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.loginFailed(ctx, email, "unknown")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	verifier := crypto.VerifierFor(account.Password)
	scheme := schemeLabel(verifier.Scheme())
	if err := verifier.Verify(password); err != nil {
		s.loginFailed(ctx, email, scheme)
		return nil, ErrInvalidCredentials
	}
	if verifier.Scheme() == crypto.SchemePlain {
		s.logger.Warn("login accepted legacy plaintext credential", zap.Int64("account_id", account.ID))
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}
	s.metrics.Login("success", scheme)

	return s.newSession(account)
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.normalize()
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	if len(input.Password) > crypto.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password too long", ErrInvalidInput)
	}

	if _, err := s.accounts.AccountIDByEmail(ctx, input.Email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := crypto.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", ErrInvalidInput)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := model.Account{
		Email:     input.Email,
		Password:  hash,
		Role:      input.Role,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		IsActive:  true,
	}
	if err := s.accounts.CreateAccount(ctx, &account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account registered", zap.Int64("account_id", account.ID), zap.String("role", account.Role))
	return s.newSession(account)
}

// VerifyToken distinguishes a missing token (ErrUnauthorized) from one that is
// present but unusable (ErrForbidden). A forbidden error also wraps
// auth.ErrTokenExpired or auth.ErrTokenInvalid.
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return claims, nil
}

func (s *AuthService) newSession(account model.Account) (*Session, error) {
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.SessionTTL, auth.Claims{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: accountView(account)}, nil
}

func (s *AuthService) checkLimiter(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiter.ErrRateLimited):
		s.metrics.Login("throttled", "none")
		return ErrTooManyAttempts
	default:
		// Throttling is optional; an unreachable redis must not block logins.
		s.logger.Warn("login limiter unavailable", zap.Error(err))
		return nil
	}
}

func (s *AuthService) loginFailed(ctx context.Context, email, scheme string) {
	s.metrics.Login("invalid", scheme)
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("login limiter record failed", zap.Error(err))
	}
}

func accountView(account model.Account) AccountView {
	return AccountView{
		ID:        account.ID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
		Phone:     account.Phone,
		IsActive:  account.IsActive,
		CreatedAt: account.CreatedAt,
	}
}

func schemeLabel(scheme crypto.Scheme) string {
	if scheme == crypto.SchemeBcrypt {
		return "bcrypt"
	}
	return "plain"
}
