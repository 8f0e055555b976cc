package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer issues and checks HS256 tokens signed with a process-wide key.
// Tokens are self-contained: nothing is stored and nothing can be revoked before expiry.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. The key is copied and never changes afterwards.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// IssueEmailToken issues a token carrying only the email claim.
func (ti *TokenIssuer) IssueEmailToken(email string, expiryHours int) (string, error) {
	return ti.IssueToken(models.TokenClaims{Email: email}, expiryHours)
}

// IssueToken signs subject with iat/nbf set to now and exp set expiryHours later.
func (ti *TokenIssuer) IssueToken(subject models.TokenClaims, expiryHours int) (string, error) {
	if expiryHours <= 0 {
		return "", fmt.Errorf("token expiry must be positive, got %d hours", expiryHours)
	}

	now := ti.now()
	claims := subject
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiryHours) * time.Hour)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate reports whether the token has a good signature and is within its lifetime.
// It never fails loudly: malformed, expired and mis-signed tokens all yield false.
func (ti *TokenIssuer) Validate(tokenString string) bool {
	_, err := ti.Claims(tokenString)
	return err == nil
}

// Claims verifies the token and returns its claims.
func (ti *TokenIssuer) Claims(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// Decode reads the email and timestamp claims without checking the signature or expiry.
// Input that is not a token at all fails with TOKEN_INVALID.
func (ti *TokenIssuer) Decode(tokenString string) (*models.DecodedToken, error) {
	claims := &models.TokenClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, models.Validation(models.MsgTokenInvalid)
	}

	decoded := &models.DecodedToken{Email: claims.Email}
	if claims.NotBefore != nil {
		decoded.Nbf = claims.NotBefore.Unix()
	}
	if claims.ExpiresAt != nil {
		decoded.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		decoded.Iat = claims.IssuedAt.Unix()
	}

	return decoded, nil
}
