package config

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"24h", 24 * time.Hour},
		{"10d", 10 * 24 * time.Hour},
		{"1.5d", 36 * time.Hour},
		{"45s", 45 * time.Second},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if err != nil {
			t.Fatalf("ParseDuration(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, input := range []string{"", "xd", "10x", "d"} {
		if _, err := ParseDuration(input); err == nil {
			t.Fatalf("ParseDuration(%q) expected error, got nil", input)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Token.AccessTTL != 30*time.Minute {
		t.Fatalf("unexpected default access TTL: %v", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 10*24*time.Hour {
		t.Fatalf("unexpected default refresh TTL: %v", cfg.Token.RefreshTTL)
	}
	if cfg.Password.MinLength != 8 {
		t.Fatalf("unexpected default password min length: %d", cfg.Password.MinLength)
	}
	if cfg.Mail.Queue != "password-reset-email" {
		t.Fatalf("unexpected default mail queue: %q", cfg.Mail.Queue)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRE_TIME", "15m")
	t.Setenv("REFRESH_TOKEN_EXPIRE_TIME", "7d")
	t.Setenv("PASSWORD_MIN_LENGTH", "12")
	t.Setenv("DB_USE_SSL", "true")

	cfg := LoadConfig()

	if cfg.Token.AccessSecret != "access-secret" {
		t.Fatalf("access secret not loaded from env")
	}
	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Fatalf("access TTL = %v, want 15m", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("refresh TTL = %v, want 7d", cfg.Token.RefreshTTL)
	}
	if cfg.Password.MinLength != 12 {
		t.Fatalf("password min length = %d, want 12", cfg.Password.MinLength)
	}
	if !cfg.Database.UseSSL {
		t.Fatalf("DB_USE_SSL not applied")
	}
}
