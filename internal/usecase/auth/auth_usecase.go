package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/repository"
)

type AuthUseCase struct {
	userRepo  repository.UserRepository
	jwtSecret string
	expiry    time.Duration
	log       zerolog.Logger
}

func NewAuthUseCase(userRepo repository.UserRepository, jwtSecret string, expiryMin int, log zerolog.Logger) *AuthUseCase {
	return &AuthUseCase{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		expiry:    time.Duration(expiryMin) * time.Minute,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// RegisterRequest represents an account creation request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	Name        string `json:"name" binding:"required,min=2,max=100"`
	DateOfBirth string `json:"date_of_birth" binding:"required,datetime=2006-01-02"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func (uc *AuthUseCase) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		DateOfBirth:  &dob,
		Subscription: domain.Subscription{
			Plan:   domain.PlanStarter,
			Status: domain.SubscriptionExpired,
		},
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.log.Info().Int("user_id", user.ID).Msg("user registered")
	return uc.respond(user)
}

func (uc *AuthUseCase) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return uc.respond(user)
}

func (uc *AuthUseCase) Me(ctx context.Context, userID int) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

// ValidateToken verifies a bearer token and returns the user id it was
// issued for.
func (uc *AuthUseCase) ValidateToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(uc.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid token subject")
	}
	return int(sub), nil
}

func (uc *AuthUseCase) respond(user *domain.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(uc.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(uc.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
