package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// TokenClaims are the fields carried by an access token
type TokenClaims struct {
	UserID    primitive.ObjectID
	Email     string
	Role      models.Role
	ExpiresAt time.Time
}

// IssueToken signs an HS256 access token for account that expires after ttl
func IssueToken(secret string, account models.Account, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("token secret is not set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   account.ID.Hex(),
		"email": account.Email,
		"role":  string(account.Role),
		"typ":   "access",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry of raw and returns its claims
func ParseToken(secret, raw string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token, %v", err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("failed to read token subject, %v", err)
	}
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, fmt.Errorf("token subject %q is not an id", sub)
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, errors.New("token is not an access token")
	}

	out := &TokenClaims{UserID: id}
	out.Email, _ = claims["email"].(string)
	role, _ := claims["role"].(string)
	out.Role = models.Role(role)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
