package share

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-valid-share-token-secret"

func newTestIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	i, err := NewIssuer(Config{Secret: testSecret, TTL: ttl})
	require.NoError(t, err)
	return i
}

func TestIssuer_RoundTrip(t *testing.T) {
	i := newTestIssuer(t, time.Hour)

	token, expiresAt, err := i.Issue("draft-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	draftID, err := i.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "draft-123", draftID)
}

func TestIssuer_Expired(t *testing.T) {
	i := newTestIssuer(t, time.Minute)
	token, _, err := i.Issue("draft-123")
	require.NoError(t, err)

	i.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = i.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongSecret(t *testing.T) {
	token, _, err := newTestIssuer(t, time.Hour).Issue("draft-123")
	require.NoError(t, err)

	other, err := NewIssuer(Config{Secret: "another-secret-of-enough-length"})
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongAudience(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "recap-backend",
		Audience:  jwt.ClaimStrings{"somebody-else"},
		Subject:   "draft-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestIssuer(t, time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Garbage(t *testing.T) {
	_, err := newTestIssuer(t, time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_ShortSecret(t *testing.T) {
	_, err := NewIssuer(Config{Secret: "short"})
	assert.Error(t, err)
}
