package token

import "fmt"

// ConfigError indicates the manager was constructed with invalid or
// conflicting options. It is raised before any network call is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil || e.Reason == "" {
		return "token manager: invalid configuration"
	}
	return "token manager: " + e.Reason
}

// ValidationError indicates the access token failed local signature or
// expiry checks. It triggers the refresh escalation rather than surfacing
// directly to callers.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	if e == nil || e.Cause == nil {
		return "token manager: token validation failed"
	}
	return fmt.Sprintf("token manager: token validation failed: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ExhaustedError is returned when all three escalation tiers (validate,
// refresh, reauthorize) failed. Cause is the final tier's failure.
type ExhaustedError struct {
	Cause error
}

func (e *ExhaustedError) Error() string {
	if e == nil || e.Cause == nil {
		return "token manager: authorization exhausted"
	}
	return fmt.Sprintf("token manager: authorization exhausted, re-authorization failed: %v", e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
