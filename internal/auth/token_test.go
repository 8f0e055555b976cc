package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-bytes-long"

func fixedIssuer(secret string, now time.Time) *TokenIssuer {
	ti := NewTokenIssuer(secret)
	ti.now = func() time.Time { return now }
	return ti
}

// ============================================================================
// Issue / Claims
// ============================================================================

func TestTokenIssuer_IssueToken_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer(testSecret)

	token, err := ti.IssueToken(models.TokenClaims{
		Email:     "user@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		RoleID:    "3",
		UserID:    "42",
	}, 2)
	require.NoError(t, err)

	claims, err := ti.Claims(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.FirstName)
	assert.Equal(t, "3", claims.RoleID)
	assert.Equal(t, "42", claims.UserID)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, 2*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.True(t, ti.Validate(token))
}

func TestTokenIssuer_IssueToken_RejectsNonPositiveExpiry(t *testing.T) {
	ti := NewTokenIssuer(testSecret)

	for _, hours := range []int{0, -1} {
		token, err := ti.IssueToken(models.TokenClaims{Email: "user@example.com"}, hours)
		assert.Error(t, err)
		assert.Empty(t, token)
	}
}

func TestTokenIssuer_IssueEmailToken_OnlyEmail(t *testing.T) {
	ti := NewTokenIssuer(testSecret)

	token, err := ti.IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)

	claims, err := ti.Claims(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Empty(t, claims.RoleID)
	assert.Empty(t, claims.UserID)
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	ti := fixedIssuer(testSecret, time.Now())

	first, err := ti.IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)
	second, err := ti.IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

// ============================================================================
// Validate
// ============================================================================

func TestTokenIssuer_Validate(t *testing.T) {
	issued := time.Now().Add(-3 * time.Hour)
	ti := NewTokenIssuer(testSecret)

	valid, err := ti.IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)

	expired, err := fixedIssuer(testSecret, issued).IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)

	otherKey, err := NewTokenIssuer("a-completely-different-signing-key!!").IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid", valid, true},
		{"expired", expired, false},
		{"wrong key", otherKey, false},
		{"alg none", noneAlg, false},
		{"garbage", "not-a-token", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ti.Validate(tt.token))
		})
	}
}

func TestTokenIssuer_Validate_NotYetValid(t *testing.T) {
	future := time.Now().Add(time.Hour)
	token, err := fixedIssuer(testSecret, future).IssueEmailToken("user@example.com", 2)
	require.NoError(t, err)

	assert.False(t, NewTokenIssuer(testSecret).Validate(token))
}

// ============================================================================
// Decode
// ============================================================================

func TestTokenIssuer_Decode_IgnoresSignatureAndExpiry(t *testing.T) {
	issued := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	token, err := fixedIssuer("another-secret-for-decoding-tests!!", issued).IssueEmailToken("user@example.com", 1)
	require.NoError(t, err)

	decoded, err := NewTokenIssuer(testSecret).Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", decoded.Email)
	assert.Equal(t, issued.Unix(), decoded.Iat)
	assert.Equal(t, issued.Unix(), decoded.Nbf)
	assert.Equal(t, issued.Add(time.Hour).Unix(), decoded.Exp)
}

func TestTokenIssuer_Decode_Malformed(t *testing.T) {
	ti := NewTokenIssuer(testSecret)

	decoded, err := ti.Decode("definitely.not.jwt")
	assert.Nil(t, decoded)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, models.MsgTokenInvalid, models.CodeOf(err))
}
