package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/store"
	"tokoisi/backend/internal/store/memory"
)

func newTestAuth() (*AuthManager, *memory.Store) {
	repo := memory.NewSeeded(nil)
	return NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, repo), repo
}

func TestSignupCreatesUserWithoutRole(t *testing.T) {
	auth, repo := newTestAuth()
	ctx := context.Background()

	profile, err := auth.Signup(ctx, domain.SignupRequest{Email: " Baru@TokoIsi.local ", Password: "rahasia123", FullName: "Kasir Baru"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if profile.Email != "baru@tokoisi.local" || profile.FullName != "Kasir Baru" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	role, err := repo.GetUserRole(ctx, profile.UserID)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != "" {
		t.Fatalf("expected no role after signup, got %s", role)
	}

	if _, err := auth.Signup(ctx, domain.SignupRequest{Email: "baru@tokoisi.local", Password: "rahasia123"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate signup to conflict, got %v", err)
	}
}

func TestSignupValidatesInput(t *testing.T) {
	auth, _ := newTestAuth()

	tests := []struct {
		name string
		req  domain.SignupRequest
	}{
		{name: "bad email", req: domain.SignupRequest{Email: "not-an-email", Password: "rahasia123"}},
		{name: "short password", req: domain.SignupRequest{Email: "a@tokoisi.local", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Signup(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoginIssuesTokenWithoutRoleClaim(t *testing.T) {
	auth, _ := newTestAuth()

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Email: "kasir@tokoisi.local", Password: "kasir12345"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleCashier || resp.UserID != "user-cashier" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.UserID != "user-cashier" || actor.Role != "" {
		t.Fatalf("expected identity without role, got %+v", actor)
	}

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Email: "kasir@tokoisi.local", Password: "salah"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := auth.Login(context.Background(), domain.LoginRequest{Email: "nobody@tokoisi.local", Password: "kasir12345"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestResolveReadsCurrentRole(t *testing.T) {
	auth, repo := newTestAuth()
	ctx := context.Background()

	resp, err := auth.Login(ctx, domain.LoginRequest{Email: "manager@tokoisi.local", Password: "manager12345"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := repo.DeleteUserRole(ctx, "user-manager"); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	actor, err := auth.Resolve(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if actor.Role != "" {
		t.Fatalf("expected revoked role to apply immediately, got %s", actor.Role)
	}
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	auth, repo := newTestAuth()
	issued := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Email: "owner@tokoisi.local", Password: "owner12345"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	auth.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := auth.ParseToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	auth.now = func() time.Time { return issued }
	other := NewAuthManager("another-secret-key-that-is-long-enough", time.Hour, repo)
	if _, err := other.ParseToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token signed with another key to be rejected, got %v", err)
	}
}

func TestEnsureUserAssignsRole(t *testing.T) {
	auth, repo := newTestAuth()
	ctx := context.Background()

	if err := auth.EnsureUser(ctx, "pemilik@tokoisi.local", "pemilik-rahasia", "Pemilik", domain.RoleSuperAdmin); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	account, err := repo.GetUserByEmail(ctx, "pemilik@tokoisi.local")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	role, _ := repo.GetUserRole(ctx, account.UserID)
	if role != domain.RoleSuperAdmin {
		t.Fatalf("expected super admin, got %s", role)
	}

	if err := auth.EnsureUser(ctx, "pemilik@tokoisi.local", "ignored-password", "Pemilik", domain.RoleSuperAdmin); err != nil {
		t.Fatalf("ensure existing user: %v", err)
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Email: "pemilik@tokoisi.local", Password: "pemilik-rahasia"}); err != nil {
		t.Fatalf("expected original password to survive, got %v", err)
	}
}
