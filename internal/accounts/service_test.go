package accounts

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/MaykerCreative/mayker-proposals/internal/store"
)

type fakeAccountStore struct {
	accounts map[string]store.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]store.Account)}
}

func (f *fakeAccountStore) GetAccountByEmail(_ context.Context, email string) (store.Account, error) {
	account, ok := f.accounts[strings.ToLower(email)]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (f *fakeAccountStore) GetAccountByID(_ context.Context, id string) (store.Account, error) {
	for _, account := range f.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return store.Account{}, sql.ErrNoRows
}

func (f *fakeAccountStore) CreateAccount(_ context.Context, account store.Account) error {
	f.accounts[account.Email] = account
	return nil
}

func TestSignUpAndSignIn(t *testing.T) {
	fs := newFakeAccountStore()
	svc := NewService(fs)

	account, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "Lead@Mayker.Test",
		Password:    "correct horse",
		DisplayName: "Jordan",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if account.Email != "lead@mayker.test" {
		t.Errorf("email should be normalized, got %q", account.Email)
	}
	if account.PasswordHash == "correct horse" {
		t.Errorf("password must not be stored in clear")
	}
	if account.Role != "editor" {
		t.Errorf("expected default role editor, got %q", account.Role)
	}

	signedIn, err := svc.SignIn(context.Background(), "lead@mayker.test", "correct horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if signedIn.ID != account.ID {
		t.Errorf("expected account %q, got %q", account.ID, signedIn.ID)
	}

	if _, err := svc.SignIn(context.Background(), "lead@mayker.test", "wrong"); err == nil {
		t.Errorf("expected sign-in failure with wrong password")
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(newFakeAccountStore())

	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.c", Password: "short", DisplayName: "X"}); err == nil {
		t.Errorf("expected error for short password")
	}
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Password: "long enough", DisplayName: "X"}); err == nil {
		t.Errorf("expected error for missing email")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeAccountStore())

	req := SignUpRequest{Email: "dup@mayker.test", Password: "long enough", DisplayName: "A"}
	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	if _, err := svc.SignUp(context.Background(), req); err == nil {
		t.Errorf("expected duplicate email rejection")
	}
}
