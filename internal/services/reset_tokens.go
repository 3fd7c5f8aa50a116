package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = 1800 * time.Second
	// PasswordResetSalt separates reset tokens from any other token signed with the same secret.
	PasswordResetSalt = "password-reset-salt"
)

type resetClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// ResetTokenManager signs stateless password reset tokens. The signing key is
// derived from the server secret and the salt, so a token minted for another
// purpose, or under another secret, never verifies.
type ResetTokenManager struct {
	key  []byte
	salt string
	ttl  time.Duration
	now  func() time.Time
}

func NewResetTokenManager(secret, salt string) *ResetTokenManager {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(salt))

	return &ResetTokenManager{
		key:  mac.Sum(nil),
		salt: salt,
		ttl:  ResetTokenTTL,
		now:  time.Now,
	}
}

func (m *ResetTokenManager) Issue(userID uint) (string, error) {
	if userID == 0 {
		return "", errors.New("cannot issue reset token without a user id")
	}

	// iat and exp are whole seconds. exp gets one extra second so a token is
	// still accepted when its whole-second age equals the ttl.
	now := m.now()
	claims := resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  jwt.ClaimStrings{m.salt},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl + time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("signing reset token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by a valid token. Every failure mode is
// reported as ErrInvalidResetToken.
func (m *ResetTokenManager) Verify(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &resetClaims{}, func(token *jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(m.salt),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}

	claims, ok := token.Claims.(*resetClaims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.IssuedAt == nil {
		return 0, ErrInvalidResetToken
	}
	if m.now().Truncate(time.Second).Sub(claims.IssuedAt.Time) > m.ttl {
		return 0, fmt.Errorf("%w: token older than %s", ErrInvalidResetToken, m.ttl)
	}

	return claims.UserID, nil
}
