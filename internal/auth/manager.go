package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/bnema/gcal-token/internal/security"
	"github.com/bnema/gcal-token/internal/tokenstore"
)

// Flow selects which interactive authorization flow to run
type Flow string

const (
	FlowBrowser Flow = "browser"
	FlowDevice  Flow = "device"
)

// Options configures the auth manager
type Options struct {
	// SecretsPath is the client secrets JSON file; empty uses built-in credentials.
	SecretsPath string
	// Scopes requested during consent; empty uses DefaultScopes.
	Scopes []string
	// Flow is the interactive flow to use; empty defaults to FlowBrowser.
	Flow Flow
	// NoBrowser prints the consent URL instead of launching a browser.
	NoBrowser bool
	// ListenPort pins the loopback port; 0 picks an ephemeral one.
	ListenPort int
	// Timeout bounds the interactive wait; zero uses the flow default.
	Timeout time.Duration
}

// Manager owns the OAuth token lifecycle: interactive authorization, storage,
// refresh and revocation.
type Manager struct {
	secrets    *ClientSecrets
	scopes     []string
	flow       Flow
	opts       *Options
	store      *tokenstore.Store
	httpClient *security.SecureHTTPClient
	logger     *security.SecureLogger
	verbose    bool
}

// NewManager creates an auth manager with its token store under dataDir
func NewManager(dataDir string, opts *Options, verbose bool) (*Manager, error) {
	if opts == nil {
		opts = &Options{}
	}

	secrets, err := LoadClientSecrets(opts.SecretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client secrets: %w", err)
	}

	store, err := tokenstore.New(dataDir, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	// Hardened client for direct calls to the token and revocation endpoints
	httpClient, err := security.NewSecureHTTPClient("https://oauth2.googleapis.com")
	if err != nil {
		return nil, fmt.Errorf("failed to create secure HTTP client: %w", err)
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	flow := opts.Flow
	if flow == "" {
		flow = FlowBrowser
	}

	logger := security.NewSecureLogger(verbose)
	logger.LogSecurityEvent("auth_manager_initialized", security.SeverityInfo, map[string]any{
		"data_dir": dataDir,
		"flow":     string(flow),
	})

	return &Manager{
		secrets:    secrets,
		scopes:     scopes,
		flow:       flow,
		opts:       opts,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		verbose:    verbose,
	}, nil
}

// Authenticate runs the configured interactive flow and persists the result
func (m *Manager) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	var (
		token *oauth2.Token
		err   error
	)

	switch m.flow {
	case FlowDevice:
		token, err = NewDeviceFlow(m.secrets, m.scopes, m.verbose).Authorize(ctx)
	default:
		flow := NewBrowserFlow(m.secrets, m.scopes, BrowserFlowOptions{
			ListenPort:  m.opts.ListenPort,
			OpenBrowser: !m.opts.NoBrowser,
			Timeout:     m.opts.Timeout,
		}, m.verbose)
		token, err = flow.Authorize(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(token); err != nil {
		return nil, fmt.Errorf("authorization succeeded but saving the token failed: %w", err)
	}

	return token, nil
}

// Token returns a usable token: the stored one if valid, a refreshed one if
// expired but refreshable, otherwise the result of a fresh interactive flow.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	token, err := m.store.Load()
	if err != nil {
		m.logger.LogAuthEvent("token_load", false, map[string]any{
			"error": err.Error(),
		})
		return m.Authenticate(ctx)
	}

	if token.Valid() {
		m.logger.LogAuthEvent("token_load", true, map[string]any{
			"token_valid": true,
		})
		return token, nil
	}

	if token.RefreshToken != "" {
		refreshed, err := m.refreshToken(ctx, token)
		if err == nil {
			m.logger.LogAuthEvent("token_refresh", true, nil)
			return refreshed, nil
		}
		m.logger.LogAuthEvent("token_refresh", false, map[string]any{
			"error": err.Error(),
		})
	}

	// Expired with no working refresh token: full re-auth
	return m.Authenticate(ctx)
}

// StoredToken loads the persisted token without refreshing or authenticating
func (m *Manager) StoredToken() (*oauth2.Token, error) {
	return m.store.Load()
}

// HasValidToken checks if a valid token exists
func (m *Manager) HasValidToken() bool {
	token, err := m.store.Load()
	isValid := err == nil && token.Valid()

	m.logger.LogAuthEvent("token_validation", isValid, map[string]any{
		"has_token": err == nil,
		"is_valid":  isValid,
	})

	return isValid
}

// Client returns an authenticated HTTP client backed by a usable token
func (m *Manager) Client(ctx context.Context) (*http.Client, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}

	return m.secrets.OAuthConfig(m.scopes).Client(ctx, token), nil
}

// refreshToken exchanges the refresh token for a fresh access token and saves it
func (m *Manager) refreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	params := url.Values{
		"client_id":     {m.secrets.ClientID()},
		"client_secret": {m.secrets.ClientSecret()},
		"refresh_token": {token.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	startTime := time.Now()
	resp, err := m.httpClient.PostFormWithContext(ctx, TokenURL, params)
	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	m.logger.LogNetworkEvent("POST", TokenURL, resp.StatusCode, duration.String())

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}

		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil {
			return nil, fmt.Errorf("token refresh failed: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token response: %w", err)
	}

	if tokenResp.AccessToken == "" || tokenResp.ExpiresIn <= 0 {
		return nil, fmt.Errorf("invalid token refresh response: missing required fields")
	}

	token.AccessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		// Google usually omits the refresh token here; keep the old one
		token.RefreshToken = tokenResp.RefreshToken
	}
	token.Expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	token.TokenType = tokenResp.TokenType

	if err := m.store.Save(token); err != nil {
		return nil, err
	}

	return token, nil
}

// Revoke invalidates the credential at Google's revocation endpoint and
// removes the local copy.
func (m *Manager) Revoke(ctx context.Context) error {
	token, err := m.store.Load()
	if err != nil {
		return security.NewTokenError("revoke", "no stored token to revoke").WithCause(err)
	}

	// Revoking the refresh token also invalidates derived access tokens
	revokeTarget := token.RefreshToken
	if revokeTarget == "" {
		revokeTarget = token.AccessToken
	}

	resp, err := m.httpClient.PostFormWithContext(ctx, RevokeURL, url.Values{
		"token": {revokeTarget},
	})
	if err != nil {
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	// Google returns 400 for already-revoked tokens; treat that as success
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("revocation failed with status %d", resp.StatusCode)
	}

	m.logger.LogAuthEvent("token_revoked", true, nil)

	return m.store.Clear()
}

// ClearLocalToken removes the stored token without contacting Google
func (m *Manager) ClearLocalToken() error {
	return m.store.Clear()
}

// Store exposes the underlying token store
func (m *Manager) Store() *tokenstore.Store {
	return m.store
}

// Scopes returns the scopes the manager requests during consent
func (m *Manager) Scopes() []string {
	return m.scopes
}

// Close releases network resources
func (m *Manager) Close() error {
	if m.httpClient != nil {
		m.httpClient.Close()
	}

	m.logger.LogSecurityEvent("auth_manager_closed", security.SeverityInfo, map[string]any{
		"data_dir": m.store.DataDir(),
	})

	return nil
}
