package authn

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims identifies the collaborator behind a WebSocket connection.
type Claims struct {
	ClientID string `json:"sub"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// SignAccessToken issues an HS256 token for a collaborator, valid for ttl.
func SignAccessToken(secret []byte, clientID, name string, ttl time.Duration) (string, error) {
	claims := &Claims{
		ClientID: clientID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "authn: sign token")
	}
	return token, nil
}

// ParseToken validates a bearer token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "authn: parse token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("authn: invalid token")
	}
	return claims, nil
}
