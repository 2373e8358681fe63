package auth

import (
	"strings"
	"testing"
)

// Low cost keeps the bcrypt calls in these tests fast.
const testBcryptCost = 4

func TestHashPasswordLengthPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"one under minimum", strings.Repeat("p", MinPasswordLength-1), ErrPasswordTooShort},
		{"exactly minimum", strings.Repeat("p", MinPasswordLength), nil},
		{"exactly maximum", strings.Repeat("p", MaxPasswordLength), nil},
		{"one over maximum", strings.Repeat("p", MaxPasswordLength+1), ErrPasswordTooLong},
		{"empty", "", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, testBcryptCost)
			if err != tt.wantErr {
				t.Fatalf("HashPassword(%d chars) error = %v, want %v", len(tt.password), err, tt.wantErr)
			}
			if tt.wantErr == nil && hash == "" {
				t.Error("HashPassword() returned an empty hash")
			}
			if tt.wantErr == nil && hash == tt.password {
				t.Error("HashPassword() returned the plaintext password")
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	const password = "hub-admin-password"
	hash, err := HashPassword(password, testBcryptCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if err := CheckPassword(password, hash); err != nil {
		t.Errorf("CheckPassword() with the right password returned %v", err)
	}
	if err := CheckPassword("hub-admin-passwore", hash); err != ErrInvalidPassword {
		t.Errorf("CheckPassword() with a wrong password returned %v, want ErrInvalidPassword", err)
	}
	if err := CheckPassword("", hash); err != ErrInvalidPassword {
		t.Errorf("CheckPassword() with an empty password returned %v, want ErrInvalidPassword", err)
	}
	if err := CheckPassword(password, "not-a-bcrypt-hash"); err == nil {
		t.Error("CheckPassword() against a malformed hash returned nil")
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	first, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}
	// 32 bytes hex-encoded
	if len(first) != 64 {
		t.Errorf("secret length = %d, want 64", len(first))
	}

	second, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}
	if first == second {
		t.Error("consecutive secrets must differ")
	}
}
