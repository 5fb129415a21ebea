package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of every issued token.
const TokenTTL = 15 * 24 * time.Hour

// VerifyStatus tags the outcome of token verification.
type VerifyStatus int

const (
	TokenValid VerifyStatus = iota
	TokenExpired
	TokenInvalid
)

func (s VerifyStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Verification is the result of Verify. IdentityID is set only when Status is TokenValid.
type Verification struct {
	Status     VerifyStatus
	IdentityID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Valid reports whether the token was accepted.
func (v Verification) Valid() bool {
	return v.Status == TokenValid
}

// Claims describes JWT payload. The identity id travels in the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the manager that reads time from now.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	return &TokenManager{secret: tm.secret, now: now}
}

// Issue builds and signs a token for the identity.
func (tm *TokenManager) Issue(identityID string) (string, time.Time, error) {
	if identityID == "" {
		return "", time.Time{}, errors.New("identity id required")
	}
	// NumericDate has second precision
	issuedAt := tm.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(TokenTTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify checks signature and expiry. Expected failures are reported through the
// returned status, never as errors.
func (tm *TokenManager) Verify(tokenStr string) Verification {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		// Signature is checked before claims, so an expired error implies a genuine token.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Verification{Status: TokenExpired, ExpiresAt: claims.ExpiresAt.Time}
		}
		return Verification{Status: TokenInvalid}
	}
	if !parsed.Valid || claims.Subject == "" {
		return Verification{Status: TokenInvalid}
	}

	v := Verification{Status: TokenValid, IdentityID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		v.IssuedAt = claims.IssuedAt.Time
	}
	return v
}
