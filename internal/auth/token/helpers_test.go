package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// signingKey returns a process-wide RSA key so tests don't pay key
// generation per case.
func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		testKey = key
	})
	return testKey
}

// mintAccessToken signs an RS256 access token expiring after ttl (which may
// be negative to produce an expired token).
func mintAccessToken(t *testing.T, key *rsa.PrivateKey, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "https://auth.example/realms/test",
		"sub": "tester",
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// publicKeyBody returns the base64 DER body the realm metadata endpoint
// advertises.
func publicKeyBody(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

// publicKeyPEM returns the wrapped PEM the validator consumes.
func publicKeyPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	return "-----BEGIN PUBLIC KEY-----\r\n" + publicKeyBody(t, key) + "\r\n-----END PUBLIC KEY-----"
}

// fakeAuthServer is a scriptable authorization server covering the realm
// metadata, device, and token endpoints.
type fakeAuthServer struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	mu           sync.Mutex
	deviceCalls  int
	tokenCalls   int
	deviceStatus int
	// tokenResponses are consumed in order by the token endpoint; the last
	// entry repeats once the script runs out.
	tokenResponses []map[string]any
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	f := &fakeAuthServer{key: signingKey(t), deviceStatus: http.StatusOK}
	keyBody := publicKeyBody(t, f.key)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.respond(w, http.StatusOK, map[string]any{"public_key": keyBody})
	})
	mux.HandleFunc("/auth/device", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deviceCalls++
		status := f.deviceStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			f.respond(w, status, map[string]any{"error": "server_error"})
			return
		}
		f.respond(w, http.StatusOK, map[string]any{
			"device_code":               "dev-123",
			"user_code":                 "ABCD-EFGH",
			"verification_uri_complete": "https://auth.example/verify?code=ABCD-EFGH",
			"expires_in":                600,
			"interval":                  0,
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokenCalls++
		var payload map[string]any
		if len(f.tokenResponses) > 0 {
			payload = f.tokenResponses[0]
			if len(f.tokenResponses) > 1 {
				f.tokenResponses = f.tokenResponses[1:]
			}
		}
		f.mu.Unlock()
		if payload == nil {
			f.respond(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		status := http.StatusOK
		if _, hasErr := payload["error"]; hasErr {
			status = http.StatusBadRequest
		}
		f.respond(w, status, payload)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAuthServer) respond(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *fakeAuthServer) script(responses ...map[string]any) {
	f.mu.Lock()
	f.tokenResponses = responses
	f.mu.Unlock()
}

func (f *fakeAuthServer) counts() (device, token int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceCalls, f.tokenCalls
}

func (f *fakeAuthServer) url() string { return f.server.URL }

func (f *fakeAuthServer) freshTokens(t *testing.T, refreshToken string) map[string]any {
	t.Helper()
	payload := map[string]any{
		"access_token": mintAccessToken(t, f.key, time.Hour),
	}
	if refreshToken != "" {
		payload["refresh_token"] = refreshToken
	}
	return payload
}
