package auth

import (
	"strings"
	"testing"
	"time"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "empty header", header: "", wantErr: true},
		{name: "missing scheme", header: "abc123", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "empty token", header: "Bearer   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractToken(%q): %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewJWTAuthRequiresSecret(t *testing.T) {
	if _, err := NewJWTAuth("", 0, 0); err == nil {
		t.Error("expected error for empty secret")
	}

	a, err := NewJWTAuth("test-secret", 0, 0)
	if err != nil {
		t.Fatalf("NewJWTAuth: %v", err)
	}
	if a.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("default access expiry = %v", a.AccessTokenExpiry)
	}
	if a.RefreshTokenExpiry != 7*24*time.Hour {
		t.Errorf("default refresh expiry = %v", a.RefreshTokenExpiry)
	}
}

func TestGenerateAndVerifyTokens(t *testing.T) {
	a, err := NewJWTAuth("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTAuth: %v", err)
	}

	access, refresh, err := a.GenerateTokens("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}

	user, err := a.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if user.ID != "user-1" || user.Email != "alice@example.com" || user.Role != "user" {
		t.Errorf("unexpected user: %+v", user)
	}

	claims, err := a.VerifyRefreshToken(refresh)
	if err != nil {
		t.Fatalf("VerifyRefreshToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("refresh claims user = %q", claims.UserID)
	}
	if claims.TokenID == "" {
		t.Error("refresh token must carry a token id")
	}
}

func TestVerifyAccessTokenRejectsBadInput(t *testing.T) {
	a, _ := NewJWTAuth("test-secret", time.Minute, time.Hour)
	other, _ := NewJWTAuth("other-secret", time.Minute, time.Hour)

	access, _, err := other.GenerateTokens("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: access},
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.VerifyAccessToken(tt.token); err == nil {
				t.Error("expected verification to fail")
			}
		})
	}
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	a, _ := NewJWTAuth("test-secret", -time.Minute, time.Hour)

	access, _, err := a.GenerateTokens("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	if _, err := a.VerifyAccessToken(access); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse 1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$") {
		t.Errorf("unexpected hash format: %q", hash)
	}

	ok, err := VerifyPassword(hash, "correct horse 1")
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword(hash, "wrong password 1")
	if err != nil || ok {
		t.Errorf("expected mismatch, got ok=%v err=%v", ok, err)
	}

	if _, err := VerifyPassword("bcrypt$nope", "x"); err == nil {
		t.Error("expected error for foreign hash format")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same password 1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPassword("same password 1")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two hashes of the same password must differ by salt")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "hunter2hunter2"},
		{name: "letters and digits", password: "abc12345"},
		{name: "too short", password: "ab1", wantErr: true},
		{name: "no digits", password: "onlyletters", wantErr: true},
		{name: "no letters", password: "1234567890", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}
