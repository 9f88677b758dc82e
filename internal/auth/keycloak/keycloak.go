// Package keycloak implements the OAuth 2.0 wire protocol against the
// authorization server: device authorization grant initiation, token
// polling, refresh grants, and public key retrieval.
package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DeviceGrantType is the grant type submitted when exchanging a device
	// code for tokens.
	DeviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"
	// RefreshGrantType is the grant type submitted when exchanging a
	// refresh token (regular or offline) for a fresh access token.
	RefreshGrantType = "refresh_token"
	// PendingError is the poll response error code meaning the operator has
	// not yet approved the authorization request.
	PendingError = "authorization_pending"
)

// DeviceAuthorization is the response from the device authorization
// endpoint.
type DeviceAuthorization struct {
	// DeviceCode is the code the client uses to poll for tokens.
	DeviceCode string `json:"device_code"`
	// UserCode is the code the operator enters at the verification URI.
	UserCode string `json:"user_code"`
	// VerificationURIComplete embeds the user code so the verification page
	// can be pre-filled.
	VerificationURIComplete string `json:"verification_uri_complete"`
	// ExpiresIn is the device code lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
	// Interval is the minimum seconds the client must wait between polls.
	Interval int `json:"interval"`
}

// TokenResponse is the token endpoint payload for both device and refresh
// grants.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Client talks to one authorization server realm endpoint.
type Client struct {
	endpoint   string
	clientID   string
	scopes     []string
	httpClient *http.Client

	// sleep is swapped out in tests to count poll intervals.
	sleep func(time.Duration)
}

// New creates a protocol client for the given realm endpoint. A nil
// httpClient selects a default with a conservative timeout.
func New(endpoint, clientID string, scopes []string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		clientID:   clientID,
		scopes:     scopes,
		httpClient: httpClient,
		sleep:      time.Sleep,
	}
}

func (c *Client) deviceEndpoint() string { return c.endpoint + "/auth/device" }
func (c *Client) tokenEndpoint() string  { return c.endpoint + "/token" }

func (c *Client) scope() string { return strings.Join(c.scopes, " ") }

func (c *Client) postForm(ctx context.Context, endpoint string, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("keycloak: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("keycloak: request to %s failed: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("keycloak: read response body failed: %w", err)
	}
	return resp.StatusCode, body, nil
}

// StartDeviceFlow registers a device authorization request. Any non-success
// response is fatal here; the server being unreachable or rejecting the
// client indicates misconfiguration, not transient auth state.
func (c *Client) StartDeviceFlow(ctx context.Context) (*DeviceAuthorization, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("scope", c.scope())

	status, body, err := c.postForm(ctx, c.deviceEndpoint(), data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Endpoint: c.deviceEndpoint(), StatusCode: status, Body: string(body)}
	}

	var result DeviceAuthorization
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("keycloak: parse device authorization response failed: %w", err)
	}
	if result.DeviceCode == "" {
		return nil, fmt.Errorf("keycloak: device authorization response missing device_code")
	}
	return &result, nil
}

// PollForTokens submits device-code token exchanges at the server-specified
// interval until the operator approves or the server returns a terminal
// error. There is no client-side attempt limit; the server eventually
// expires the device code and answers with a terminal error code, which
// surfaces as a FlowError like any other.
func (c *Client) PollForTokens(ctx context.Context, auth *DeviceAuthorization) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", DeviceGrantType)
	data.Set("device_code", auth.DeviceCode)
	data.Set("client_id", c.clientID)
	data.Set("scope", c.scope())

	interval := time.Duration(auth.Interval) * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, body, err := c.postForm(ctx, c.tokenEndpoint(), data)
		if err != nil {
			return nil, err
		}

		var result TokenResponse
		if err = json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("keycloak: parse token poll response failed: %w", err)
		}

		// Success is defined by the absence of an error code.
		if result.Error == "" {
			return &result, nil
		}
		if result.Error != PendingError {
			return nil, &FlowError{Code: result.Error, Description: result.ErrorDescription}
		}

		log.Debugf("authorization pending, polling again in %v", interval)
		c.sleep(interval)
	}
}

// Refresh exchanges a refresh token (regular or offline) for new tokens.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", RefreshGrantType)
	data.Set("client_id", c.clientID)
	data.Set("refresh_token", refreshToken)
	data.Set("scope", c.scope())

	status, body, err := c.postForm(ctx, c.tokenEndpoint(), data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Endpoint: c.tokenEndpoint(), StatusCode: status, Body: string(body)}
	}

	var result TokenResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("keycloak: parse refresh response failed: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("keycloak: refresh response missing access_token")
	}
	return &result, nil
}

// FetchPublicKey retrieves the realm's advertised RSA public key and wraps
// it into a PEM block suitable for local signature verification.
func (c *Client) FetchPublicKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("keycloak: create public key request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("keycloak: public key request to %s failed: %w", c.endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("keycloak: read public key response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Endpoint: c.endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var metadata struct {
		PublicKey string `json:"public_key"`
	}
	if err = json.Unmarshal(body, &metadata); err != nil {
		return "", fmt.Errorf("keycloak: parse realm metadata failed: %w", err)
	}
	if metadata.PublicKey == "" {
		return "", fmt.Errorf("keycloak: realm metadata missing public_key")
	}
	return fmt.Sprintf("-----BEGIN PUBLIC KEY-----\r\n%s\r\n-----END PUBLIC KEY-----", metadata.PublicKey), nil
}
