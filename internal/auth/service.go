package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"client-registry/internal/observability"
)

// Service implements registration, login, refresh and password changes.
// All persistent state lives behind UserStore and AttemptLedger.
type Service struct {
	users    UserStore
	ledger   AttemptLedger
	hasher   PasswordHasher
	tokens   *TokenService
	guard    *LockoutGuard
	denylist Denylist
	logger   *observability.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users UserStore, ledger AttemptLedger, hasher PasswordHasher, tokens *TokenService) *Service {
	return &Service{
		users:    users,
		ledger:   ledger,
		hasher:   hasher,
		tokens:   tokens,
		guard:    NewLockoutGuard(ledger, DefaultMaxFailedAttempts, DefaultLockWindow),
		denylist: NewMemoryDenylist(),
		now:      time.Now,
	}
}

func (s *Service) WithSecurityConfig(maxAttempts int, lockWindow time.Duration) *Service {
	s.guard = NewLockoutGuard(s.ledger, maxAttempts, lockWindow)
	s.guard.now = s.now
	return s
}

func (s *Service) WithDenylist(denylist Denylist) *Service {
	if denylist != nil {
		s.denylist = denylist
	}
	return s
}

func (s *Service) WithLogger(logger *observability.Logger) *Service {
	s.logger = logger
	return s
}

// WithClock sets the time source for attempts, last_login and lockout.
// Token timestamps follow the TokenService clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.guard.now = now
	}
	return s
}

func (s *Service) Register(ctx context.Context, username, password string) (PublicUser, error) {
	username = strings.TrimSpace(username)

	if err := ValidatePassword(password); err != nil {
		return PublicUser{}, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return PublicUser{}, ErrDuplicateUsername
	} else if !errors.Is(err, ErrUserNotFound) {
		return PublicUser{}, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return PublicUser{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return PublicUser{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.now().UTC()
	user := User{
		ID:           id.String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique constraint settles concurrent registrations of one name.
	if err := s.users.CreateUser(ctx, user); err != nil {
		return PublicUser{}, err
	}

	s.logger.Info("user_registered", map[string]any{"user_id": user.ID})

	return user.Public(), nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	username := strings.TrimSpace(input.Username)

	status, err := s.guard.Status(ctx, username)
	if err != nil {
		return LoginResult{}, err
	}
	if status.Locked {
		s.logger.Warn("login_locked", map[string]any{
			"username": username,
			"failures": status.Failures,
			"retry_at": status.RetryAt,
			"ip":       input.SourceAddress,
		})
		return LoginResult{}, &LockedError{RetryAt: status.RetryAt}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, err
		}
		// Same hashing cost as a real check so timing does not reveal
		// whether the username exists.
		s.verifyDummy(ctx, input.Password)
		return LoginResult{}, s.recordFailure(ctx, username, input)
	}

	ok, err := s.hasher.Verify(ctx, input.Password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return LoginResult{}, s.recordFailure(ctx, username, input)
	}

	now := s.now().UTC()
	if err := s.ledger.RecordAttempt(ctx, LoginAttempt{
		Username:      username,
		Outcome:       OutcomeSuccess,
		AttemptedAt:   now,
		SourceAddress: input.SourceAddress,
		ClientAgent:   input.ClientAgent,
	}); err != nil {
		return LoginResult{}, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, err
	}
	user.LastLogin = &now

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		User:         user.Public(),
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, username string, input LoginInput) error {
	err := s.ledger.RecordAttempt(ctx, LoginAttempt{
		Username:      username,
		Outcome:       OutcomeFailed,
		AttemptedAt:   s.now().UTC(),
		SourceAddress: input.SourceAddress,
		ClientAgent:   input.ClientAgent,
	})
	if err != nil {
		return err
	}

	s.logger.Warn("login_failed", map[string]any{
		"username": username,
		"ip":       input.SourceAddress,
	})

	return ErrInvalidCredentials
}

func (s *Service) verifyDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(context.Background(), "dummy-Passw0rd!")
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
}

// Refresh issues a new access token. The refresh token itself is reused
// until it expires or is revoked by Logout.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (RefreshResult, error) {
	claims, err := s.tokens.Verify(rawRefresh, RefreshToken)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return RefreshResult{}, err
	}
	if revoked {
		return RefreshResult{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return RefreshResult{}, err
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return RefreshResult{}, err
	}

	return RefreshResult{AccessToken: access.Value}, nil
}

// UpdatePassword changes the caller's password. Tokens issued earlier stay
// valid.
func (s *Service) UpdatePassword(ctx context.Context, identity Identity, currentPassword, newPassword string) error {
	if err := s.ensureNotRevoked(ctx, identity); err != nil {
		return err
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrCurrentPasswordIncorrect
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info("password_updated", map[string]any{"user_id": user.ID})

	return nil
}

// Logout revokes the presented access token and, when given, a refresh
// token belonging to the same user.
func (s *Service) Logout(ctx context.Context, identity Identity, rawRefresh string) error {
	if err := s.ensureNotRevoked(ctx, identity); err != nil {
		return err
	}

	var refreshClaims *Claims
	if strings.TrimSpace(rawRefresh) != "" {
		claims, err := s.tokens.Verify(rawRefresh, RefreshToken)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
		}
		if claims.Subject != identity.UserID {
			return ErrInvalidRefreshToken
		}
		refreshClaims = claims
	}

	if err := s.denylist.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return err
	}
	if refreshClaims != nil {
		if err := s.denylist.Revoke(ctx, refreshClaims.ID, refreshClaims.ExpiresAt.Time); err != nil {
			return err
		}
	}

	s.logger.Info("tokens_revoked", map[string]any{
		"user_id":       identity.UserID,
		"refresh_token": refreshClaims != nil,
	})

	return nil
}

func (s *Service) ensureNotRevoked(ctx context.Context, identity Identity) error {
	revoked, err := s.denylist.IsRevoked(ctx, identity.TokenID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// BootstrapFromEnv creates the configured admin account, or resets its
// password when it already exists. Empty input is a no-op.
func (s *Service) BootstrapFromEnv(ctx context.Context, adminUsername, adminPassword string) error {
	adminUsername = strings.TrimSpace(adminUsername)

	if adminUsername == "" && adminPassword == "" {
		return nil
	}
	if adminUsername == "" || adminPassword == "" {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required together")
	}

	existing, err := s.users.GetByUsername(ctx, adminUsername)
	if errors.Is(err, ErrUserNotFound) {
		_, err := s.Register(ctx, adminUsername, adminPassword)
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if err := ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	hash, err := s.hasher.Hash(ctx, adminPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, existing.ID, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("update admin user: %w", err)
	}

	return nil
}
