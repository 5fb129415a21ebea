package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/book-review-service/internal/domain"
	"github.com/spec-kit/book-review-service/internal/observability"
	"github.com/spec-kit/book-review-service/internal/repository"
	apperrors "github.com/spec-kit/book-review-service/pkg/util/errorutil"
)

const identityKey = "auth_identity"

const bearerScheme = "Bearer"

// Rejection messages returned to clients.
const (
	MsgNoToken      = "No token provided"
	MsgTokenExpired = "Token expired"
	MsgTokenInvalid = "Invalid token"
	MsgUserNotFound = "User not found"
	MsgAuthFailed   = "Authentication failed"
)

// ProfileLookup resolves a token subject to a password-free profile.
type ProfileLookup interface {
	GetProfileByID(ctx context.Context, id string) (*domain.User, error)
}

// Outcome is the terminal state of the gate for one request: either an
// authorized identity, or a rejection code and message.
type Outcome struct {
	Identity *domain.User
	Code     string
	Message  string
	label    string
}

// Authorized reports whether the request may proceed.
func (o Outcome) Authorized() bool {
	return o.Identity != nil
}

// Err converts a rejection into a 401 domain error.
func (o Outcome) Err() error {
	if o.Authorized() {
		return nil
	}
	return apperrors.NewUnauthorizedCode(o.Code, o.Message)
}

func rejected(code, message, label string) Outcome {
	return Outcome{Code: code, Message: message, label: label}
}

// Gate validates bearer tokens and loads the caller's identity.
type Gate struct {
	tokens  *TokenManager
	users   ProfileLookup
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGate constructs the auth gate.
func NewGate(tokens *TokenManager, users ProfileLookup, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, users: users, logger: logger, metrics: metrics}
}

// Authenticate runs extract, verify and resolve for an Authorization header value.
func (g *Gate) Authenticate(ctx context.Context, authorization string) Outcome {
	outcome := g.authenticate(ctx, authorization)
	label := outcome.label
	if outcome.Authorized() {
		label = "authorized"
	}
	g.metrics.RecordAuth(label)
	return outcome
}

func (g *Gate) authenticate(ctx context.Context, authorization string) Outcome {
	token, ok := ExtractBearer(authorization)
	if !ok {
		return rejected(apperrors.CodeNoToken, MsgNoToken, "no_token")
	}

	verification := g.tokens.Verify(token)
	switch verification.Status {
	case TokenValid:
	case TokenExpired:
		return rejected(apperrors.CodeTokenExpired, MsgTokenExpired, "token_expired")
	default:
		return rejected(apperrors.CodeTokenInvalid, MsgTokenInvalid, "token_invalid")
	}

	user, err := g.resolve(ctx, verification.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return rejected(apperrors.CodeUnauthorized, MsgUserNotFound, "user_not_found")
		}
		g.logger.Error("auth gate failed to resolve identity",
			zap.String("identity_id", verification.IdentityID),
			zap.Error(err))
		return rejected(apperrors.CodeUnauthorized, MsgAuthFailed, "failed")
	}
	if user == nil {
		return rejected(apperrors.CodeUnauthorized, MsgUserNotFound, "user_not_found")
	}

	profile := user.Profile()
	return Outcome{Identity: &profile}
}

func (g *Gate) resolve(ctx context.Context, id string) (user *domain.User, err error) {
	defer func() {
		if r := recover(); r != nil {
			user, err = nil, fmt.Errorf("panic resolving identity: %v", r)
		}
	}()
	return g.users.GetProfileByID(ctx, id)
}

// Handle adapts the gate to fiber: rejections end the chain with a 401.
func (g *Gate) Handle(c *fiber.Ctx) error {
	outcome := g.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if !outcome.Authorized() {
		return outcome.Err()
	}
	c.Locals(identityKey, outcome.Identity)
	return c.Next()
}

// ExtractBearer parses "Bearer <token>". The scheme is case-sensitive and
// separated by exactly one space; the token may not contain whitespace.
func ExtractBearer(header string) (string, bool) {
	scheme, rest, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme {
		return "", false
	}
	if strings.HasPrefix(rest, " ") {
		return "", false
	}
	token := strings.TrimSpace(rest)
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}

// IdentityFromContext retrieves the authenticated user.
func IdentityFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok && user != nil
}
