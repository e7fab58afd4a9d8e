// Package accounts provides email/password sign-in for the proposal team.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MaykerCreative/mayker-proposals/internal/store"
)

// AccountStore defines the storage interface for accounts.
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (store.Account, error)
	GetAccountByID(ctx context.Context, id string) (store.Account, error)
	CreateAccount(ctx context.Context, account store.Account) error
}

type Service struct {
	store AccountStore
}

func NewService(store AccountStore) *Service {
	return &Service{store: store}
}

type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// SignUp creates a new team account. This is an internal tool, so accounts
// are active immediately; there is no email verification step.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.DisplayName)
	if email == "" || req.Password == "" || name == "" {
		return store.Account{}, errors.New("email, password, and display name are required")
	}
	if len(req.Password) < 8 {
		return store.Account{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		return store.Account{}, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := store.Account{
		ID:           generateID(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
		Role:         "editor",
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return store.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// SignIn authenticates by email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return store.Account{}, errors.New("email and password are required")
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return store.Account{}, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return store.Account{}, errors.New("invalid email or password")
	}
	return account, nil
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "acct_" + hex.EncodeToString(b)
}
