package jwt

import (
	"errors"
	"testing"
	"time"

	"shift-market/backend/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:            "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:       15 * time.Minute,
		ConfirmationTokenTTL: 5 * time.Minute,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", true, false)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("期望 UserID=user-1，实际=%s", claims.UserID)
	}
	if !claims.IsSuperAdmin {
		t.Error("期望 IsSuperAdmin=true")
	}
	if claims.IsGeneric {
		t.Error("期望 IsGeneric=false")
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("期望 TokenType=access，实际=%s", claims.TokenType)
	}
	if claims.Issuer != "shift-market" {
		t.Errorf("期望 Issuer=shift-market，实际=%s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}
}

func TestConfirmationToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, expiresAt, err := m.GenerateConfirmationToken("staff-1", "kiosk-1")
	if err != nil {
		t.Fatalf("GenerateConfirmationToken 失败: %v", err)
	}

	ttl := time.Until(expiresAt)
	if ttl < 4*time.Minute || ttl > 6*time.Minute {
		t.Errorf("确认令牌 TTL 期望约5分钟，实际=%v", ttl)
	}

	staffID, err := m.ParseConfirmationToken(token, "kiosk-1")
	if err != nil {
		t.Fatalf("ParseConfirmationToken 失败: %v", err)
	}
	if staffID != "staff-1" {
		t.Errorf("期望 staff-1，实际=%s", staffID)
	}
}

func TestConfirmationToken_WrongPrincipal(t *testing.T) {
	m := newTestManager()

	token, _, _ := m.GenerateConfirmationToken("staff-1", "kiosk-1")

	_, err := m.ParseConfirmationToken(token, "kiosk-2")
	if !errors.Is(err, ErrConfirmationNotOwn) {
		t.Errorf("期望 ErrConfirmationNotOwn，实际=%v", err)
	}
}

func TestConfirmationToken_RejectsAccessToken(t *testing.T) {
	m := newTestManager()

	token, _ := m.GenerateAccessToken("staff-1", false, false)

	_, err := m.ParseConfirmationToken(token, "kiosk-1")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -1 * time.Minute,
	})

	token, err := m.GenerateAccessToken("user-1", false, false)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	_, err = m.ParseToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("期望 ErrTokenExpired，实际=%v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-for-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, _ := m1.GenerateAccessToken("user-1", false, false)

	_, err := m2.ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	m := newTestManager()

	_, err := m.ParseToken("not.a.token")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际=%v", err)
	}
}
