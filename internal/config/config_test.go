package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "relay-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "relay-auth")
	}
	if cfg.JWTAudience != "relay-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "relay-api")
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 720*time.Hour {
		t.Errorf("RefreshTTL = %v, want 720h", cfg.RefreshTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.RateLoginLimit != 5 || cfg.LoginWindow() != time.Minute {
		t.Errorf("login policy = %d/%v, want 5/1m", cfg.RateLoginLimit, cfg.LoginWindow())
	}
	if cfg.RateMessageLimit != 30 || cfg.MessageWindow() != time.Minute {
		t.Errorf("message policy = %d/%v, want 30/1m", cfg.RateMessageLimit, cfg.MessageWindow())
	}
	if cfg.RateAPILimit != 100 || cfg.APIWindow() != time.Minute {
		t.Errorf("api policy = %d/%v, want 100/1m", cfg.RateAPILimit, cfg.APIWindow())
	}
	if cfg.JanitorInterval() != 24*time.Hour {
		t.Errorf("JanitorInterval = %v, want 24h", cfg.JanitorInterval())
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("ACCESS_TTL", "5m")
	os.Setenv("RATE_LOGIN_LIMIT", "10")
	os.Setenv("RATE_LOGIN_WINDOW", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL = %v, want 5m", cfg.AccessTTL())
	}
	if cfg.RateLoginLimit != 10 {
		t.Errorf("RateLoginLimit = %d, want 10", cfg.RateLoginLimit)
	}
	if cfg.LoginWindow() != 30*time.Second {
		t.Errorf("LoginWindow = %v, want 30s", cfg.LoginWindow())
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("BCRYPT_COST", "50")
	if _, err := Load(); err == nil {
		t.Error("BCRYPT_COST=50 should fail")
	}

	os.Clearenv()
	os.Setenv("RATE_API_LIMIT", "-1")
	if _, err := Load(); err == nil {
		t.Error("negative rate limit should fail")
	}
}

func TestDurationOr_FallsBackOnGarbage(t *testing.T) {
	if d := durationOr("not-a-duration", time.Minute); d != time.Minute {
		t.Errorf("durationOr garbage = %v, want 1m fallback", d)
	}
	if d := durationOr("-5m", time.Minute); d != time.Minute {
		t.Errorf("durationOr negative = %v, want 1m fallback", d)
	}
	if d := durationOr("90s", time.Minute); d != 90*time.Second {
		t.Errorf("durationOr 90s = %v", d)
	}
}
