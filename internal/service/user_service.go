package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"coworkd/internal/database"
	"coworkd/internal/domain"
	"coworkd/internal/models"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// Register creates a user with a bcrypt password hash. Role defaults to
// "user"; only "user" and "admin" are accepted.
func (s *UserService) Register(ctx context.Context, name, email, telephone, password, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, &ValidationError{Msg: "please add a name"}
	}
	if !emailPattern.MatchString(email) {
		return nil, &ValidationError{Msg: "please add a valid email"}
	}
	if len(password) < 6 {
		return nil, &ValidationError{Msg: "password must be at least 6 characters"}
	}

	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, &ValidationError{Msg: "role must be user or admin"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Telephone:    telephone,
		Role:         role,
		PasswordHash: string(hash),
	}

	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, &ValidationError{Msg: "email is already registered"}
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the email/password pair. Both unknown email and wrong
// password return ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, &ValidationError{Msg: "please provide email and password"}
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	return user, err
}
