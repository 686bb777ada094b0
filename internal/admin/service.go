package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/nekogravitycat/zone-booking-backend/internal/auth"
)

type Service interface {
	// Login checks the credentials and returns the admin with a session token.
	Login(ctx context.Context, email, password string) (*Admin, string, error)
	// EnsureAdmin creates or resets the account used to bootstrap staff access.
	EnsureAdmin(ctx context.Context, email, password string) (*Admin, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	tokens *auth.JWTManager
}

func NewService(repo Repository, hasher auth.PasswordHasher, tokens *auth.JWTManager) Service {
	return &service{repo: repo, hasher: hasher, tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Login(ctx context.Context, email, password string) (*Admin, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	a, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	ok, err := s.hasher.Matches(a.PasswordHash, password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(a.ID, a.Email)
	if err != nil {
		return nil, "", err
	}
	return a, token, nil
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) (*Admin, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	a := &Admin{Email: email, PasswordHash: hash}
	if err := s.repo.Upsert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
