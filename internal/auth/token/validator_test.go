package token

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"
)

func TestValidatorAcceptsValidToken(t *testing.T) {
	t.Parallel()

	key := signingKey(t)
	validator, err := NewValidator(publicKeyPEM(t, key))
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	if err = validator.Validate(mintAccessToken(t, key, time.Hour)); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidatorRejections(t *testing.T) {
	t.Parallel()

	key := signingKey(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"expired token", func(t *testing.T) string {
			return mintAccessToken(t, key, -time.Minute)
		}},
		{"wrong signing key", func(t *testing.T) string {
			return mintAccessToken(t, otherKey, time.Hour)
		}},
		{"garbage token", func(t *testing.T) string {
			return "not-a-jwt"
		}},
		{"tampered payload", func(t *testing.T) string {
			signed := mintAccessToken(t, key, time.Hour)
			return signed[:len(signed)-4] + "AAAA"
		}},
	}

	validator, err := NewValidator(publicKeyPEM(t, key))
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validator.Validate(tt.token(t))
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("Validate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestNewValidatorRejectsBadKey(t *testing.T) {
	t.Parallel()

	if _, err := NewValidator("not a pem block"); err == nil {
		t.Error("NewValidator() expected error for invalid PEM")
	}
}
