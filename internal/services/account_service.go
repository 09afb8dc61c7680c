package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	models "clipsify/internal/media"
	"clipsify/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer is implemented by *auth.JWTManager.
type TokenIssuer interface {
	Generate(id models.Identity) (string, time.Time, error)
}

// AccountService is the built-in credentials provider: email/password users
// who receive a signed session token on login.
type AccountService struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAccountService(users UserStore, tokens TokenIssuer) *AccountService {
	return &AccountService{users: users, tokens: tokens}
}

func (s *AccountService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: Email, password and name are required", ErrValidation)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Name: name, Email: email, PasswordHash: string(hash), Provider: "credentials"}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: Missing email or password", ErrValidation)
	}
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Generate(models.Identity{UserID: u.ID.Hex(), Name: u.Name, Email: u.Email})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}
