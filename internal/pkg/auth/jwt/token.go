package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// OperatorTokenExpiration is the default lifetime of a monitoring token.
	OperatorTokenExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "planpoker"
)

// GenerateToken creates and signs a new JWT Token string for subject with the given role.
func GenerateToken(subject, role, secretKey string, duration time.Duration) (string, error) {
	if secretKey == "" {
		return "", errors.New("secret key is required")
	}

	now := time.Now()

	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates the JWT Token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.Issuer != TokenIssuer {
		return nil, errors.New("unexpected token issuer")
	}

	return claims, nil
}
