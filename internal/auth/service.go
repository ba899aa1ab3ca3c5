package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/bagaart/TaskFlow/internal/repository"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Fields, ", ")
}

type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=255"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Service struct {
	users    repository.UserRepository
	tokens   *TokenIssuer
	validate *validator.Validate
}

func NewService(users repository.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks a request struct against its validate tags.
func (s *Service) Validate(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return &ValidationError{Fields: fields}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return u, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (string, *models.User, error) {
	if err := s.Validate(req); err != nil {
		return "", nil, err
	}

	u, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !CheckPassword(u.PasswordHash, req.Password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// CreateAdmin registers a user with admin rights, used by the CLI.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	req := RegisterRequest{Name: name, Email: email, Password: password, ConfirmPassword: password}
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Name: name, Email: email, PasswordHash: hash, IsAdmin: true}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return u, nil
}
