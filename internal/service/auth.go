package service

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// SignIn exchanges the owner's access code for a bearer token
func (s *DefaultService) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error) {
	if strings.TrimSpace(req.AccessCode) == "" {
		return nil, ierr.NewError("access code is empty").
			WithHint("Access code is required").
			Mark(ierr.ErrValidation)
	}

	owner, err := s.repo.GetOwner(ctx)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error getting owner").
			Mark(ierr.ErrDatabase)
	}

	if owner == nil {
		return nil, ierr.NewError("owner not provisioned").
			WithHint("Owner not initialized").
			Mark(ierr.ErrConfiguration)
	}

	// Verify access code
	if err := bcrypt.CompareHashAndPassword([]byte(owner.AccessCodeHash), []byte(req.AccessCode)); err != nil {
		return nil, ierr.NewError("access code mismatch").
			WithHint("Invalid access code").
			Mark(ierr.ErrUnauthorized)
	}

	token, err := s.generateJWT(owner)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error generating token").
			Mark(ierr.ErrSystem)
	}

	return &models.AuthResponse{
		Token:     token,
		ExpiresIn: int(TokenDuration.Seconds()),
	}, nil
}

// Authenticate verifies a bearer token and returns the owner id it binds
func (s *DefaultService) Authenticate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", unauthorized("Authentication required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", unauthorized("Invalid token")
	}

	ownerID, err := token.Claims.GetSubject()
	if err != nil || ownerID == "" {
		return "", unauthorized("Invalid token claims")
	}

	return ownerID, nil
}

// Helper methods
func (s *DefaultService) generateJWT(owner *models.Owner) (string, error) {
	now := s.now()

	claims := jwt.MapClaims{
		"sub": owner.ID,
		"exp": now.Add(TokenDuration).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func unauthorized(hint string) error {
	return ierr.NewError("token rejected").
		WithHint(hint).
		Mark(ierr.ErrUnauthorized)
}

// HashAccessCode returns the bcrypt hash stored for an access code
func HashAccessCode(accessCode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(accessCode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
