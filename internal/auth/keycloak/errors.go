package keycloak

import "fmt"

// StatusError reports a non-success HTTP status from an authorization
// server endpoint. These are not retried; they indicate the service is
// unreachable or the client is misconfigured.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "keycloak: request failed"
	}
	return fmt.Sprintf("keycloak: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// FlowError reports a terminal device-flow error code returned while
// polling the token endpoint. Every code other than authorization_pending
// is terminal, including expired_token and access_denied; the raw code is
// carried through unmodified.
type FlowError struct {
	Code        string
	Description string
}

func (e *FlowError) Error() string {
	if e == nil {
		return "keycloak: device flow failed"
	}
	if e.Description != "" {
		return fmt.Sprintf("keycloak: device flow failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("keycloak: device flow failed: %s", e.Code)
}
