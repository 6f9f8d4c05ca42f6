package main

import (
	"testing"

	"tokoisi/backend/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "short secret", cfg: config.Config{AuthSecret: "short"}},
		{name: "short seed password", cfg: config.Config{AuthSecret: strongSecret, SeedSuperAdminEmail: "owner@tokoisi.local", SeedSuperAdminPassword: "owner123"}},
		{name: "common seed password", cfg: config.Config{AuthSecret: strongSecret, SeedSuperAdminEmail: "owner@tokoisi.local", SeedSuperAdminPassword: "Password1234"}},
		{name: "repeated seed password", cfg: config.Config{AuthSecret: strongSecret, SeedSuperAdminEmail: "owner@tokoisi.local", SeedSuperAdminPassword: "aaaaaaaaaaaaaa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateSecurityConfig(tt.cfg); err == nil {
				t.Fatalf("expected weak security config to be rejected")
			}
		})
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: strongSecret}); err != nil {
		t.Fatalf("expected config without seed admin to pass, got %v", err)
	}
	err := validateSecurityConfig(config.Config{
		AuthSecret:             strongSecret,
		SeedSuperAdminEmail:    "owner@tokoisi.local",
		SeedSuperAdminPassword: "kopi-susu-gula-aren-7",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
