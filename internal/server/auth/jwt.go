package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wevote/reconcile/internal/common"
)

// Claims carries the standard registered claims plus the signed-in voter's
// we_vote id.
type Claims struct {
	jwt.RegisteredClaims
	VoterWeVoteID string
}

// GenerateToken mints a signed HS256 session token for the given voter.
func GenerateToken(voterWeVoteID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		VoterWeVoteID: voterWeVoteID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetVoterWeVoteIDFromToken validates a session token and returns the
// voter we_vote id it was minted for.
func GetVoterWeVoteIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", err
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.VoterWeVoteID, nil
}
