package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/bnema/gcal-token/internal/security"
)

// ClientSecrets represents the OAuth client secrets JSON downloaded from the
// Google Cloud console. Desktop credentials use the "installed" key, web
// credentials use "web"; both carry the same fields.
type ClientSecrets struct {
	Installed *clientCredentials `json:"installed,omitempty"`
	Web       *clientCredentials `json:"web,omitempty"`
}

type clientCredentials struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	RedirectURIs []string `json:"redirect_uris"`
}

// credentials returns whichever credential block is present
func (cs *ClientSecrets) credentials() *clientCredentials {
	if cs.Installed != nil {
		return cs.Installed
	}
	return cs.Web
}

// ClientID returns the OAuth client ID from the secrets file
func (cs *ClientSecrets) ClientID() string {
	return cs.credentials().ClientID
}

// ClientSecret returns the OAuth client secret from the secrets file
func (cs *ClientSecrets) ClientSecret() string {
	return cs.credentials().ClientSecret
}

// OAuthConfig builds an oauth2.Config for the given scopes. The redirect URL
// is filled in later by the flow that owns the loopback listener.
func (cs *ClientSecrets) OAuthConfig(scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cs.ClientID(),
		ClientSecret: cs.ClientSecret(),
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
}

// HasBuiltinCredentials reports whether a client ID is available without a
// secrets file, from the environment or build-time injection.
func HasBuiltinCredentials() bool {
	return os.Getenv("GCAL_TOKEN_CLIENT_ID") != "" || GoogleOAuthClientID != ""
}

// LoadClientSecrets reads and validates a client secrets JSON file. When path
// is empty, the GCAL_TOKEN_CLIENT_ID/GCAL_TOKEN_CLIENT_SECRET environment
// variables are used, then build-time injected credentials.
func LoadClientSecrets(path string) (*ClientSecrets, error) {
	if path == "" {
		clientID := os.Getenv("GCAL_TOKEN_CLIENT_ID")
		clientSecret := os.Getenv("GCAL_TOKEN_CLIENT_SECRET")
		if clientID == "" {
			clientID = GoogleOAuthClientID
			clientSecret = GoogleOAuthClientSecret
		}
		if clientID == "" {
			return nil, fmt.Errorf("no client secrets file provided and no built-in client ID available")
		}
		return &ClientSecrets{
			Installed: &clientCredentials{
				ClientID:     clientID,
				ClientSecret: clientSecret,
			},
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets file '%s': %w", path, err)
	}

	var secrets ClientSecrets
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse client secrets JSON: %w", err)
	}

	if secrets.Installed == nil && secrets.Web == nil {
		return nil, security.NewValidationError("credentials", "", "neither 'installed' nor 'web' block is present")
	}

	if secrets.ClientID() == "" {
		return nil, security.NewValidationError("client_id", "", "missing from client secrets")
	}

	return &secrets, nil
}
