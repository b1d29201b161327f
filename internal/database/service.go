package database

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ReviewerService issues and validates tokens for the two privileged write
// paths: endorsement status review and administrative score overrides.
type ReviewerService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewReviewerService creates a new reviewer service.
func NewReviewerService(jwtSecret string) *ReviewerService {
	return &ReviewerService{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}
}

// GenerateToken generates a JWT for a reviewer identity.
func (s *ReviewerService) GenerateToken(reviewerID string) (string, error) {
	claims := jwt.MapClaims{
		"reviewer_id": reviewerID,
		"exp":         time.Now().Add(s.tokenTTL).Unix(),
		"iat":         time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT and returns the reviewer ID.
func (s *ReviewerService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		reviewerID, ok := claims["reviewer_id"].(string)
		if !ok {
			return "", fmt.Errorf("reviewer_id not found in token")
		}
		return reviewerID, nil
	}

	return "", fmt.Errorf("invalid token")
}
