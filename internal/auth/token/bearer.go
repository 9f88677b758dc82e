package token

import "net/http"

// BearerCredential carries an access token for use as an HTTP
// Authorization header.
type BearerCredential struct {
	accessToken string
}

// NewBearerCredential wraps an access token.
func NewBearerCredential(accessToken string) *BearerCredential {
	return &BearerCredential{accessToken: accessToken}
}

// HeaderValue returns the full Authorization header value.
func (b *BearerCredential) HeaderValue() string {
	return "Bearer " + b.accessToken
}

// Apply sets the Authorization header on the request.
func (b *BearerCredential) Apply(req *http.Request) {
	req.Header.Set("Authorization", b.HeaderValue())
}
