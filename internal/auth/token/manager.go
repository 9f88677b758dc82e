package token

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gbrrestoration/mdsclient/internal/auth/keycloak"
	"github.com/gbrrestoration/mdsclient/internal/browser"
)

// DefaultFileStorePath is used when no storage target is configured.
const DefaultFileStorePath = ".tokens.json"

// Options configures a Manager. Exactly one storage target may be set;
// when neither is, a file store at DefaultFileStorePath is used.
type Options struct {
	// Stage selects which cache partition this manager owns.
	Stage Stage
	// Endpoint is the authorization server realm base URL.
	Endpoint string
	// ClientID identifies the OAuth client.
	ClientID string
	// Scopes are the requested OIDC scopes.
	Scopes []string
	// Mode selects the authorization flow. Defaults to FlowDevice.
	Mode FlowMode
	// OfflineToken is the pre-issued long-lived refresh token. Required in
	// offline mode, forbidden in device mode.
	OfflineToken string
	// FilePath selects file-backed persistence.
	FilePath string
	// ObjectStore selects persistence into a caller-owned map.
	ObjectStore StageTokens
	// ForceReset clears all cached stages before first use.
	ForceReset bool
	// Silent suppresses operator-facing stdout output. Errors are still
	// returned regardless.
	Silent bool
	// NoBrowser skips the automatic browser launch during the device flow.
	NoBrowser bool
	// HTTPClient overrides the client used for authorization server calls.
	HTTPClient *http.Client
}

func (o *Options) validate() error {
	if _, err := ParseStage(string(o.Stage)); err != nil {
		return err
	}
	if o.Endpoint == "" {
		return &ConfigError{Reason: "authorization endpoint is required"}
	}
	if o.ClientID == "" {
		return &ConfigError{Reason: "client id is required"}
	}
	if o.Mode == "" {
		o.Mode = FlowDevice
	}
	switch o.Mode {
	case FlowDevice:
		if o.OfflineToken != "" {
			return &ConfigError{Reason: "offline token must not be supplied in device mode"}
		}
	case FlowOffline:
		if o.OfflineToken == "" {
			return &ConfigError{Reason: "offline mode requires an offline token"}
		}
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown auth mode %q", o.Mode)}
	}
	if o.FilePath != "" && o.ObjectStore != nil {
		return &ConfigError{Reason: "file path and object storage are mutually exclusive"}
	}
	return nil
}

// Manager owns the token pair for one stage. Construction attempts to load
// cached credentials and always leaves the manager holding a valid pair, or
// fails. Not safe for concurrent use; a manager serves one call site at a
// time.
type Manager struct {
	stage        Stage
	mode         FlowMode
	offlineToken string
	silent       bool
	noBrowser    bool

	flow      *keycloak.Client
	store     Store
	validator *Validator
	tokens    *TokenPair

	logger *log.Entry

	// openBrowser is swapped out in tests.
	openBrowser func(string) error
}

// NewManager builds a manager and runs the full escalation once so a
// successfully constructed manager always holds a valid token pair.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var store Store
	switch {
	case opts.ObjectStore != nil:
		store = NewMemoryStore(opts.ObjectStore)
	case opts.FilePath != "":
		store = NewFileStore(opts.FilePath)
	default:
		store = NewFileStore(DefaultFileStorePath)
	}

	m := &Manager{
		stage:        opts.Stage,
		mode:         opts.Mode,
		offlineToken: opts.OfflineToken,
		silent:       opts.Silent,
		noBrowser:    opts.NoBrowser,
		flow:         keycloak.New(opts.Endpoint, opts.ClientID, opts.Scopes, opts.HTTPClient),
		store:        store,
		openBrowser:  browser.OpenURL,
		logger: log.WithFields(log.Fields{
			"session": uuid.NewString(),
			"stage":   string(opts.Stage),
		}),
	}

	if opts.ForceReset {
		m.print("Flushing cached tokens from storage.")
		if err := m.store.Clear(); err != nil {
			return nil, err
		}
	}

	publicKey, err := m.flow.FetchPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	m.validator, err = NewValidator(publicKey)
	if err != nil {
		return nil, err
	}

	cached, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	m.tokens = cached[m.stage].Clone()
	if m.tokens != nil {
		m.print("Found cached tokens in storage.")
	}

	if _, err = m.GetValidAccessToken(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// GetValidAccessToken returns a validated access token, escalating through
// validate, refresh, and full re-authorization in order and short-circuiting
// on the first success. All three tiers failing is fatal.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	if m.tokens != nil {
		err := m.validator.Validate(m.tokens.AccessToken)
		if err == nil {
			return m.tokens.AccessToken, nil
		}
		m.logger.Debugf("cached token validation failed: %v", err)
	}

	if refreshToken := m.refreshToken(); refreshToken != "" {
		m.print("Refreshing access token using refresh token.")
		err := m.refreshWith(ctx, refreshToken)
		if err == nil {
			return m.tokens.AccessToken, nil
		}
		m.logger.Debugf("token refresh failed: %v", err)
	}

	m.print("Re-authorizing from scratch.")
	if err := m.reauthorize(ctx); err != nil {
		return "", &ExhaustedError{Cause: err}
	}
	return m.tokens.AccessToken, nil
}

// Bearer returns a credential wrapping a freshly validated access token.
func (m *Manager) Bearer(ctx context.Context) (*BearerCredential, error) {
	accessToken, err := m.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return NewBearerCredential(accessToken), nil
}

// refreshToken picks the refresh credential for the configured mode: the
// offline token in offline mode, the cached refresh token otherwise.
func (m *Manager) refreshToken() string {
	if m.mode == FlowOffline {
		return m.offlineToken
	}
	if m.tokens != nil {
		return m.tokens.RefreshToken
	}
	return ""
}

func (m *Manager) refreshWith(ctx context.Context, refreshToken string) error {
	resp, err := m.flow.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return m.adopt(resp)
}

// reauthorize runs a brand new authorization flow for the configured mode.
func (m *Manager) reauthorize(ctx context.Context) error {
	if m.mode == FlowOffline {
		return m.refreshWith(ctx, m.offlineToken)
	}
	return m.deviceLogin(ctx)
}

func (m *Manager) deviceLogin(ctx context.Context) error {
	m.print("Initiating device authorization flow.")
	auth, err := m.flow.StartDeviceFlow(ctx)
	if err != nil {
		return err
	}

	m.presentChallenge(auth)

	m.print("Awaiting authorization...")
	resp, err := m.flow.PollForTokens(ctx, auth)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return fmt.Errorf("token manager: device flow payload missing access or refresh token")
	}

	if err = m.adopt(resp); err != nil {
		return err
	}
	m.print("Authorization successful.")
	return nil
}

// presentChallenge shows the verification URL and user code and tries to
// open a browser. A failed browser launch is only logged; the operator can
// complete the flow manually.
func (m *Manager) presentChallenge(auth *keycloak.DeviceAuthorization) {
	m.print(fmt.Sprintf("Verification URL: %s", auth.VerificationURIComplete))
	m.print(fmt.Sprintf("User code: %s", auth.UserCode))
	if m.noBrowser {
		return
	}
	if err := m.openBrowser(auth.VerificationURIComplete); err != nil {
		m.logger.Warnf("failed to open browser, please visit the URL manually: %v", err)
	}
}

// adopt replaces the in-memory pair with the response tokens, persists the
// cache, and validates the new access token.
func (m *Manager) adopt(resp *keycloak.TokenResponse) error {
	pair := &TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	// Offline mode never holds a refresh token beyond the configured one.
	if m.mode == FlowOffline {
		pair.RefreshToken = ""
	}
	m.tokens = pair

	if err := m.persist(); err != nil {
		return err
	}
	return m.validator.Validate(pair.AccessToken)
}

// persist performs a full read-modify-write of the stage token cache,
// replacing only this manager's stage entry. Last writer wins; each process
// owns its stage line.
func (m *Manager) persist() error {
	cache, err := m.store.Load()
	if err != nil {
		return err
	}
	cache[m.stage] = m.tokens.Clone()
	if m.mode == FlowOffline {
		cache.StripRefreshTokens()
	}
	return m.store.Save(cache)
}

func (m *Manager) print(message string) {
	if m.silent {
		return
	}
	fmt.Println(message)
}
