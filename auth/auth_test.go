// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			// Verify it's valid hex
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	// Test randomness - two IDs should be different
	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestValidateAdminKey(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		expected  string
		wantErr   bool
	}{
		{"matching", "s3cret", "s3cret", false},
		{"wrong key", "guess", "s3cret", true},
		{"prefix only", "s3c", "s3cret", true},
		{"empty presented", "", "s3cret", true},
		{"empty configured", "s3cret", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.presented, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"ab1234":     "AB1234",
		"  Ab1234\n": "AB1234",
		"XYZ":        "XYZ",
	}
	for in, want := range tests {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateDelegateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateDelegateCode()
		if err != nil {
			t.Fatalf("GenerateDelegateCode() error = %v", err)
		}
		if !IsDelegateCode(code) {
			t.Errorf("GenerateDelegateCode() = %q, not 2 letters + 4 digits", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly distinct codes, got %d of 50", len(seen))
	}
}

func TestGenerateOfficerCode(t *testing.T) {
	code, err := GenerateOfficerCode()
	if err != nil {
		t.Fatalf("GenerateOfficerCode() error = %v", err)
	}
	if len(code) != officerCodeLen {
		t.Errorf("length = %d, want %d", len(code), officerCodeLen)
	}
	if NormalizeCode(code) != code {
		t.Errorf("officer code %q is not in normalized form", code)
	}
	if strings.ContainsAny(code, "0O1I") {
		t.Errorf("officer code %q contains ambiguous characters", code)
	}
}

func TestIsDelegateCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"AB1234", true},
		{"ab1234", false},
		{"A11234", false},
		{"AB123", false},
		{"AB12345", false},
		{"ABCDEFGHJK", false},
	}
	for _, tt := range tests {
		if got := IsDelegateCode(tt.code); got != tt.want {
			t.Errorf("IsDelegateCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("secret", "code-123", time.Minute)
	if err != nil {
		t.Fatalf("NewSessionToken() error = %v", err)
	}
	if tok.Token == "" {
		t.Fatal("empty token")
	}
	if time.Until(tok.Exp) <= 0 {
		t.Error("token already expired")
	}

	codeID, err := ParseSessionToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("ParseSessionToken() error = %v", err)
	}
	if codeID != "code-123" {
		t.Errorf("codeID = %q, want code-123", codeID)
	}
}

func TestParseSessionToken_Rejects(t *testing.T) {
	good, _ := NewSessionToken("secret", "code-123", time.Minute)
	expired, _ := NewSessionToken("secret", "code-123", -time.Minute)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "code-123",
	}).SignedString([]byte("secret"))

	tests := []struct {
		name   string
		secret string
		raw    string
	}{
		{"wrong secret", "other", good.Token},
		{"expired", "secret", expired.Token},
		{"missing expiry", "secret", noExp},
		{"garbage", "secret", "not.a.jwt"},
		{"empty", "secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSessionToken(tt.secret, tt.raw); err != ErrInvalidToken {
				t.Errorf("ParseSessionToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
