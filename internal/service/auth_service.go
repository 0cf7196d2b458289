package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/auth"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/validate"
)

type AuthService struct {
	users     *repository.UserRepo
	jwtSecret string
	jwtTTL    time.Duration
	log       zerolog.Logger
}

func NewAuthService(users *repository.UserRepo, jwtSecret string, jwtTTL time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL, log: log.With().Str("service", "auth").Logger()}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fail(s.log, err, "find user")
	}
	hash := dummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.CheckPassword(in.Password, hash) || user == nil {
		s.log.Warn().Str("email", in.Email).Msg("failed login")
		return nil, apperr.Unauthorized("invalid email or password")
	}
	tok, err := auth.GenerateToken(s.jwtSecret, s.jwtTTL, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fail(s.log, err, "sign session token")
	}
	return &AuthResult{Token: tok, User: user.ToResponse()}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fail(s.log, err, "find user")
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// SeedAdmin creates the configured admin account once.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Admin",
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	s.log.Info().Str("email", email).Msg("admin user seeded")
	return nil
}
