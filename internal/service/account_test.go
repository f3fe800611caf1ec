package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

func TestRegister_DefaultCash(t *testing.T) {
	svc := newTestServices(t)

	u, err := svc.accounts.Register(context.Background(), RegisterRequest{Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.UserID == "" {
		t.Error("user_id is empty")
	}
	if !u.Cash.Equal(decimal.RequireFromString("10000")) {
		t.Errorf("got cash %s, want 10000", u.Cash)
	}
}

func TestRegister_ExplicitCash(t *testing.T) {
	svc := newTestServices(t)

	u, err := svc.accounts.Register(context.Background(), RegisterRequest{
		Username:    "bob",
		InitialCash: strPtr("0.05"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.Cash.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("got cash %s, want 0.05", u.Cash)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"empty username", RegisterRequest{Username: ""}},
		{"username with space", RegisterRequest{Username: "a b"}},
		{"username too long", RegisterRequest{Username: strings.Repeat("a", 65)}},
		{"negative cash", RegisterRequest{Username: "carol", InitialCash: strPtr("-1")}},
		{"three decimals", RegisterRequest{Username: "carol", InitialCash: strPtr("1.005")}},
		{"not a number", RegisterRequest{Username: "carol", InitialCash: strPtr("lots")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServices(t)
			_, err := svc.accounts.Register(context.Background(), tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	if _, err := svc.accounts.Register(ctx, RegisterRequest{Username: "alice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.accounts.Register(ctx, RegisterRequest{Username: "alice"})
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("got %v, want ErrUserAlreadyExists", err)
	}
}

func TestCheckUsername(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if _, err := svc.accounts.Register(ctx, RegisterRequest{Username: "taken"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		username string
		want     bool
	}{
		{"free", true},
		{"taken", false},
		{"", false},
		{"not valid!", false},
	}
	for _, tt := range tests {
		got, err := svc.accounts.CheckUsername(ctx, tt.username)
		if err != nil {
			t.Fatalf("CheckUsername(%q): %v", tt.username, err)
		}
		if got != tt.want {
			t.Errorf("CheckUsername(%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}

func TestGet_UnknownUser(t *testing.T) {
	svc := newTestServices(t)

	_, err := svc.accounts.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}
