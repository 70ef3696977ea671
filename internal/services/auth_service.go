package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/nkrasnikov/tinyurl/internal/errors"
	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/repository"
)

// AccessTokenCookie is the cookie that carries the signed access token.
const AccessTokenCookie = "tinyurl_access_token"

var validEmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService handles account registration and the issuing and verification
// of signed access tokens. The link registry only ever sees the owner id it
// resolves.
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	nowFunc   func() time.Time // injected for tests
}

// NewAuthService creates an AuthService.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		nowFunc:   time.Now,
	}
}

// TokenTTL returns the lifetime of issued access tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Signup registers a new user with a bcrypt-hashed password. Emails are
// normalized to lower case before storage.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmailPattern.MatchString(email) {
		return nil, fmt.Errorf("invalid email address: %s", email)
	}
	if password == "" {
		return nil, errors.New("password must not be empty")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:          email,
		HashedPassword: string(hashed),
		CreatedAt:      s.nowFunc(),
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &apperrors.ErrEmailTaken{Email: email}
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and returns a signed access token together
// with the user. A miss and a wrong password are indistinguishable to the
// caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, &apperrors.ErrInvalidCredentials{}
		}
		return "", nil, fmt.Errorf("error fetching user: %w", err)
	}
	if !user.IsActive || user.IsAnonymous() {
		return "", nil, &apperrors.ErrInvalidCredentials{}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, &apperrors.ErrInvalidCredentials{}
	}

	now := s.nowFunc()
	claims := &jwt.RegisteredClaims{
		Subject:   user.Email,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("error signing token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, fmt.Errorf("error updating last login: %w", err)
	}

	return signed, user, nil
}

// VerifyToken checks signature and expiry of an access token and returns the
// subject email.
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", &apperrors.ErrUnauthorized{}
	}
	return claims.Subject, nil
}

// CurrentUser resolves an access token to the user it was issued for.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*models.User, error) {
	email, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrUnauthorized{}
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}
