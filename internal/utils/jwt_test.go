package utils

import (
	"strings"
	"testing"
	"time"
)

func init() {
	SetJWTSecret("guildhall-test-secret")
}

func TestGenerateToken_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		userID   uint
		username string
		role     string
	}{
		{"admin session", 1, "club-admin", "admin"},
		{"member session", 42, "alice", "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.username, tt.role, 24)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}

			claims, err := ParseToken(token)
			if err != nil {
				t.Fatalf("ParseToken() error = %v", err)
			}
			if claims.UserID != tt.userID {
				t.Errorf("UserID = %d, want %d", claims.UserID, tt.userID)
			}
			if claims.Username != tt.username {
				t.Errorf("Username = %q, want %q", claims.Username, tt.username)
			}
			if claims.Role != tt.role {
				t.Errorf("Role = %q, want %q", claims.Role, tt.role)
			}
		})
	}
}

func TestGenerateToken_Issuer(t *testing.T) {
	token, err := GenerateToken(7, "alice", "user", 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Issuer != "guildhall" {
		t.Errorf("Issuer = %q, want guildhall", claims.Issuer)
	}
	if claims.IssuedAt == nil {
		t.Error("IssuedAt should be set")
	}
}

func TestGenerateToken_Expiration(t *testing.T) {
	token, err := GenerateToken(7, "alice", "user", 2)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < time.Hour || remaining > 2*time.Hour {
		t.Errorf("token lifetime = %v, want about 2h", remaining)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	for _, token := range []string{
		"",
		"not-a-jwt",
		"a.b",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.garbage.garbage",
	} {
		if _, err := ParseToken(token); err == nil {
			t.Errorf("ParseToken(%q) should fail", token)
		}
	}
}

func TestParseToken_Tampered(t *testing.T) {
	token, err := GenerateToken(7, "alice", "user", 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	// flip the payload; the signature no longer matches
	parts := strings.Split(token, ".")
	parts[1] = "f" + parts[1][1:]
	if _, err := ParseToken(strings.Join(parts, ".")); err == nil {
		t.Error("tampered token should fail verification")
	}
}

func TestParseToken_SecretRotation(t *testing.T) {
	SetJWTSecret("before-rotation")
	token, err := GenerateToken(7, "alice", "user", 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	SetJWTSecret("after-rotation")
	_, parseErr := ParseToken(token)

	SetJWTSecret("guildhall-test-secret")

	if parseErr == nil {
		t.Error("token signed under the old secret should be rejected")
	}
}
