package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/book-review-service/internal/auth"
	"github.com/spec-kit/book-review-service/internal/config"
	"github.com/spec-kit/book-review-service/internal/domain"
	"github.com/spec-kit/book-review-service/internal/events"
	"github.com/spec-kit/book-review-service/internal/repository"
	apperrors "github.com/spec-kit/book-review-service/pkg/util/errorutil"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6

	avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg"
)

// Client-facing messages for registration and login.
const (
	MsgFillAllFields      = "Please fill all fields"
	MsgPasswordTooShort   = "Password must be at least 6 characters"
	MsgPasswordTooLong    = "Password must be at most 72 bytes"
	MsgUsernameTooShort   = "Username must be at least 3 characters"
	MsgUserAlreadyExists  = "Username or Email already exists"
	MsgInvalidCredentials = "Invalid credentials"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new identity and returns a session for it.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError(MsgFillAllFields, nil)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, apperrors.NewValidationError(MsgPasswordTooShort, map[string]any{"field": "password"})
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperrors.NewValidationError(MsgPasswordTooLong, map[string]any{"field": "password"})
	}
	if utf8.RuneCountInString(username) < minUsernameLength {
		return nil, apperrors.NewValidationError(MsgUsernameTooShort, map[string]any{"field": "username"})
	}
	email = strings.ToLower(email)

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("check existing user: %w", err))
	}
	if exists {
		return nil, apperrors.NewConflict(MsgUserAlreadyExists, nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		ProfileImage: DefaultAvatar(username),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict(MsgUserAlreadyExists, nil)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("create user: %w", err))
	}

	s.publish(ctx, events.Event{
		Type:      events.EventUserRegistered,
		ActorID:   user.ID,
		SubjectID: user.ID,
		Payload:   events.UserRegisteredPayload{Username: user.Username},
	})

	return s.IssueSession(user)
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError(MsgFillAllFields, nil)
	}
	email = strings.ToLower(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError(MsgInvalidCredentials, nil)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewValidationError(MsgInvalidCredentials, nil)
	}
	return s.IssueSession(user)
}

// IssueSession signs a token for the identity. The returned user never carries the hash.
func (s *AuthService) IssueSession(user *domain.User) (*domain.Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("issue token: %w", err))
	}
	return &domain.Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Profile(),
	}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("activity event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

// DefaultAvatar returns the generated avatar URL for a username.
func DefaultAvatar(username string) string {
	return avatarBaseURL + "?seed=" + url.QueryEscape(username)
}
