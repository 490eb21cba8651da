package service

import (
	"fmt"
	"strconv"

	"imageAttach/internal/apperr"
	"imageAttach/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies bearer tokens issued elsewhere. Issuing tokens is
// not part of this service.
type AuthService interface {
	ValidateToken(tokenString string) (*jwt.Token, error)
	UserIDFromToken(tokenString string) (string, error)
}

type authService struct {
	secret []byte
}

func NewAuthService(cfg *config.Config) AuthService {
	return &authService{secret: []byte(cfg.JWTSecretKey)}
}

func (s *authService) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

// UserIDFromToken returns the user_id claim, falling back to sub. Numeric
// ids are accepted and formatted in base 10.
func (s *authService) UserIDFromToken(tokenString string) (string, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", apperr.Unauthenticated("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.Unauthenticated("Invalid token")
	}

	for _, name := range []string{"user_id", "sub"} {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return strconv.FormatInt(int64(v), 10), nil
		}
	}

	return "", apperr.Unauthenticated("Token has no user id")
}
