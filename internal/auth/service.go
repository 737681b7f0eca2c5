package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/procurehub/procurehub/internal/shared"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) bool
	VerifyDummy(ctx context.Context, plaintext string)
}

// Tokens issues and verifies bearer tokens.
type Tokens interface {
	IssueDefault(subject string) (string, error)
	Verify(token string) (string, error)
}

// Service is the authentication gate: it registers users, exchanges
// credentials for tokens and resolves tokens back to active users.
type Service struct {
	repo   Repository
	hasher Hasher
	tokens Tokens
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher Hasher, tokens Tokens, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hasher: hasher, tokens: tokens, logger: logger}
}

// Register creates a user after hashing the password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, shared.ErrNotFound):
		s.logger.Error("register lookup", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		s.logger.Error("register hash", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user, err := s.repo.Insert(ctx, NewUser{Username: username, Email: email, PasswordHash: hashed})
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateUsername):
		return nil, ErrUsernameTaken
	case errors.Is(err, ErrDuplicateEmail):
		return nil, ErrEmailTaken
	default:
		s.logger.Error("register insert", slog.Any("error", err))
		if errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate returns the user when username and password match. It does
// not tell the caller which of the two was wrong. Store failures are logged
// and read as no match; Login reports them as ErrInternal.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, bool) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		s.hasher.VerifyDummy(ctx, password)
		s.logger.Debug("authenticate: unknown username")
		return nil, ErrInvalidCredentials
	case err != nil:
		s.logger.Error("authenticate lookup", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		s.logger.Debug("authenticate: password mismatch", slog.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login exchanges credentials for a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return Token{}, err
	}
	if !user.IsActive {
		return Token{}, ErrAccountInactive
	}
	signed, err := s.tokens.IssueDefault(user.Username)
	if err != nil {
		s.logger.Error("issue token", slog.Any("error", err))
		return Token{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return Token{AccessToken: signed, TokenType: TokenTypeBearer}, nil
}

// Resolve maps a bearer token to the active user it names. Every token
// failure is reported as ErrInvalidToken; the specific cause is only logged.
func (s *Service) Resolve(ctx context.Context, token string) (*User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Info("token rejected", slog.String("reason", tokenFailureReason(err)))
		return nil, ErrInvalidToken
	}
	user, err := s.repo.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		s.logger.Error("resolve lookup", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrMissingSubject):
		return "missing_subject"
	default:
		return "malformed"
	}
}
