package service

import (
	"context"
	"errors"
	"fmt"

	"fsanano/credit-tracker/internal/auth"
	"fsanano/credit-tracker/internal/model"
	"fsanano/credit-tracker/internal/repository"

	"github.com/go-playground/validator/v10"
)

type credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type AuthService struct {
	users    UserRepository
	validate *validator.Validate
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{users: users, validate: newValidator()}
}

// Register stores a new user with a hashed password.
func (s *AuthService) Register(ctx context.Context, username, password string) (model.User, error) {
	if err := s.validate.Struct(credentials{Username: username, Password: password}); err != nil {
		return model.User{}, ErrMissingCredentials
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.User{}, ErrDuplicateUsername
		}
		return model.User{}, err
	}
	return user, nil
}

// Login verifies a username/password pair. Unknown users and wrong passwords
// both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}
