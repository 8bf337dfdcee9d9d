package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dreamio/internal/cache"
	"dreamio/internal/models"
	"dreamio/internal/observability"
	"dreamio/internal/repository"
	"dreamio/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenTTL is the lifetime of an issued session token.
	TokenTTL = 24 * time.Hour

	tokenIssuer   = "dreamio-api"
	tokenAudience = "dreamio-client"
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	return uint(id), nil
}

// RegisterInput is the registration payload, accepted as JSON or form fields.
type RegisterInput struct {
	Name     string `json:"name" form:"name" validate:"required,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"required"`
	Role     string `json:"role" form:"role" validate:"role"`
}

// AuthService registers accounts and issues, parses and revokes session tokens.
type AuthService struct {
	userRepo         repository.UserRepository
	secret           []byte
	allowAdminSignup bool
	now              func() time.Time
}

// NewAuthService creates an AuthService signing tokens with secret.
func NewAuthService(userRepo repository.UserRepository, secret string, allowAdminSignup bool) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		secret:           []byte(secret),
		allowAdminSignup: allowAdminSignup,
		now:              time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.register")
	defer func() { observability.EndSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	role, _ := models.ParseRole(in.Role)
	if role == models.RoleAdmin && !s.allowAdminSignup {
		return nil, models.NewForbiddenError("Admin registration is disabled")
	}
	span.SetAttributes(attribute.String("user.role", string(role)))

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns a signed token for the account.
func (s *AuthService) Login(ctx context.Context, email, password string) (token string, user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.login")
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, models.NewValidationError("Email and password are required")
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return "", nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, err = s.IssueToken(user)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return token, user, nil
}

// IssueToken signs an HS256 token valid for TokenTTL.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates signature, issuer, audience and expiry, and rejects
// revoked tokens.
func (s *AuthService) ParseToken(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	if cache.IsTokenBlacklisted(ctx, claims.ID) {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

// Logout revokes the token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := cache.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
