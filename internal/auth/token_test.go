package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*TokenManager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTokenManager("super-secret").WithClock(clock.Now), clock
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	tm, clock := newTestManager(t)

	tok, exp, err := tm.Issue("user-123")
	require.NoError(t, err)
	assert.WithinDuration(t, clock.now.Add(15*24*time.Hour), exp, 0)

	v := tm.Verify(tok)
	require.True(t, v.Valid(), "status %s", v.Status)
	assert.Equal(t, "user-123", v.IdentityID)
	assert.WithinDuration(t, clock.now, v.IssuedAt, 0)
	assert.WithinDuration(t, exp, v.ExpiresAt, 0)
}

func TestVerify_ExpiresAfterFifteenDays(t *testing.T) {
	t.Parallel()
	tm, clock := newTestManager(t)
	issuedAt := clock.now

	tok, _, err := tm.Issue("user-123")
	require.NoError(t, err)

	clock.now = issuedAt.Add(TokenTTL - time.Second)
	assert.Equal(t, TokenValid, tm.Verify(tok).Status)

	clock.now = issuedAt.Add(TokenTTL)
	assert.Equal(t, TokenExpired, tm.Verify(tok).Status, "expiry instant itself is expired")

	clock.now = issuedAt.Add(TokenTTL + time.Second)
	v := tm.Verify(tok)
	assert.Equal(t, TokenExpired, v.Status)
	assert.Empty(t, v.IdentityID)
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()
	tm, _ := newTestManager(t)

	tok, _, err := tm.Issue("alice")
	require.NoError(t, err)

	other, _, err := tm.Issue("mallory")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	assert.Equal(t, TokenInvalid, tm.Verify(forged).Status)
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()
	tm, _ := newTestManager(t)

	tok, _, err := tm.Issue("alice")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	assert.Equal(t, TokenInvalid, tm.Verify(tampered).Status)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	tm, clock := newTestManager(t)

	tok, _, err := NewTokenManager("right-secret").WithClock(clock.Now).Issue("u2")
	require.NoError(t, err)

	assert.Equal(t, TokenInvalid, tm.Verify(tok).Status)
}

func TestVerify_ExpiredWithWrongSecretIsInvalid(t *testing.T) {
	t.Parallel()
	tm, clock := newTestManager(t)

	tok, _, err := NewTokenManager("other").WithClock(clock.Now).Issue("u2")
	require.NoError(t, err)

	clock.now = clock.now.Add(TokenTTL + time.Hour)
	assert.Equal(t, TokenInvalid, tm.Verify(tok).Status)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	tm, _ := newTestManager(t)

	for _, tok := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		assert.Equal(t, TokenInvalid, tm.Verify(tok).Status, "token %q", tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	tm, clock := newTestManager(t)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("super-secret"))
	require.NoError(t, err)

	assert.Equal(t, TokenInvalid, tm.Verify(tok).Status)
}

func TestVerify_RequiresExpiryAndSubject(t *testing.T) {
	t.Parallel()
	tm, clock := newTestManager(t)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "alice",
	}}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	assert.Equal(t, TokenInvalid, tm.Verify(noExp).Status)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}}).SignedString([]byte("super-secret"))
	require.NoError(t, err)
	assert.Equal(t, TokenInvalid, tm.Verify(noSub).Status)
}

func TestIssue_RequiresIdentity(t *testing.T) {
	t.Parallel()
	tm, _ := newTestManager(t)

	_, _, err := tm.Issue("")
	require.Error(t, err)
}

func TestIssue_ExpiryIsExactlyTTLAfterIssuedAt(t *testing.T) {
	t.Parallel()
	tm := NewTokenManager("super-secret").WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	})

	tok, exp, err := tm.Issue("user-123")
	require.NoError(t, err)

	v := tm.Verify(tok)
	require.True(t, v.Valid(), "status %s", v.Status)
	assert.Equal(t, TokenTTL, v.ExpiresAt.Sub(v.IssuedAt))
	assert.WithinDuration(t, v.ExpiresAt, exp, 0)
}
