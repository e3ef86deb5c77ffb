package helpers

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ReviewerClaims identify the operator behind manual approval and rejection
// actions.
type ReviewerClaims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (rc *ReviewerClaims) IsReviewer() bool {
	return rc.Role == "reviewer" || rc.Role == "admin"
}

// ValidateReviewerToken parses and verifies an HS256 reviewer token.
func ValidateReviewerToken(tokenStr, secret string) (*ReviewerClaims, error) {
	if secret == "" {
		return nil, errors.New("reviewer JWT secret is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &ReviewerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*ReviewerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}
