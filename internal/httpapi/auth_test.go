package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"accrapos/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if ok {
		user.Password = password
		s.users[username] = user
		s.updates++
	}
	return nil
}

func stubWithUser(t *testing.T, username, password, role string) *userStoreStub {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	stub := &userStoreStub{}
	if err := stub.CreateUser(context.Background(), domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return stub
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "428613", stubWithUser(t, "ama", "s3cret-pass", "cashier"))

	resp, err := auth.Login(domain.LoginRequest{Username: "ama", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != "cashier" || resp.AccessToken == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if actor.Username != "ama" || actor.Role != "cashier" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "428613", stubWithUser(t, "ama", "s3cret-pass", "cashier"))
	if _, err := auth.Login(domain.LoginRequest{Username: "ama", Password: "nope"}); err == nil {
		t.Fatal("wrong password accepted")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "s3cret-pass"}); err == nil {
		t.Fatal("unknown user accepted")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	stub := stubWithUser(t, "ama", "s3cret-pass", "cashier")
	stub.mu.Lock()
	user := stub.users["ama"]
	user.Active = false
	stub.users["ama"] = user
	stub.mu.Unlock()

	auth := NewAuthManager("test-secret-key", time.Hour, "428613", stub)
	if _, err := auth.Login(domain.LoginRequest{Username: "ama", Password: "s3cret-pass"}); err == nil {
		t.Fatal("inactive account logged in")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "428613", nil)
	if _, err := auth.ParseToken("not-a-jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	authA := NewAuthManager("secret-a-secret-a-secret-a-secret", time.Hour, "428613", stubWithUser(t, "ama", "s3cret-pass", "cashier"))
	authB := NewAuthManager("secret-b-secret-b-secret-b-secret", time.Hour, "428613", nil)

	resp, err := authA.Login(domain.LoginRequest{Username: "ama", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := authB.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestBootstrapUpgradesPlaintextPasswords(t *testing.T) {
	stub := &userStoreStub{}
	if err := stub.CreateUser(context.Background(), domain.UserAccount{
		Username: "legacy",
		Password: "plaintext-pass",
		Role:     "cashier",
		Active:   true,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, "428613", stub)
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plaintext-pass"}); err != nil {
		t.Fatalf("legacy login: %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.updates == 0 {
		t.Fatal("plain-text password never upgraded in the store")
	}
	if !strings.HasPrefix(stub.users["legacy"].Password, "$2") {
		t.Fatalf("stored password still plain text: %q", stub.users["legacy"].Password)
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "428613", &userStoreStub{})

	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "ab", Password: "goodpass"}); err == nil {
		t.Fatal("short username accepted")
	}
	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "esi kumi", Password: "goodpass"}); err == nil {
		t.Fatal("username with space accepted")
	}
	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "esikumi", Password: "123"}); err == nil {
		t.Fatal("short password accepted")
	}

	created, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "EsiKumi", Password: "goodpass"})
	if err != nil {
		t.Fatalf("CreateCashier: %v", err)
	}
	if created.Username != "esikumi" || created.Role != "cashier" {
		t.Fatalf("created = %+v", created)
	}
	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "esikumi", Password: "goodpass"}); err == nil {
		t.Fatal("duplicate username accepted")
	}

	cashiers := auth.ListCashiers()
	if len(cashiers) != 1 || cashiers[0].Username != "esikumi" {
		t.Fatalf("ListCashiers: %+v", cashiers)
	}
}

func TestValidateManagerPIN(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "428613", nil)
	if !auth.ValidateManagerPIN("428613") {
		t.Fatal("correct PIN rejected")
	}
	if auth.ValidateManagerPIN("000000") || auth.ValidateManagerPIN("") {
		t.Fatal("wrong PIN accepted")
	}
}
