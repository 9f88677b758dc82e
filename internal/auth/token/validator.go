package token

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Validator checks access tokens locally against the authorization server's
// advertised public key: RS256 signature and expiry only. The audience claim
// is deliberately not verified here; that enforcement belongs to the
// resource server.
type Validator struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

// NewValidator builds a validator from a PEM-encoded RSA public key.
func NewValidator(publicKeyPEM string) (*Validator, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("token validator: parse public key: %w", err)
	}
	return &Validator{
		key:    key,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired()),
	}, nil
}

// Validate verifies the access token's signature and expiry. Failures are
// reported as a ValidationError so the manager can escalate to a refresh.
func (v *Validator) Validate(accessToken string) error {
	_, err := v.parser.Parse(accessToken, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return &ValidationError{Cause: err}
	}
	return nil
}
