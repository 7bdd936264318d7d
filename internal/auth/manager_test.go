package auth

import (
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	secretsFile := writeSecretsFile(t, `{
		"installed": {
			"client_id": "id.apps.googleusercontent.com",
			"client_secret": "GOCSPX-s"
		}
	}`)

	manager, err := NewManager(t.TempDir(), &Options{SecretsPath: secretsFile}, false)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() {
		if err := manager.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	return manager
}

func TestManagerDefaults(t *testing.T) {
	manager := newTestManager(t)

	scopes := manager.Scopes()
	if len(scopes) != 1 || scopes[0] != ScopeCalendar {
		t.Errorf("Expected default scopes %v, got %v", DefaultScopes, scopes)
	}
}

func TestManagerTokenLifecycle(t *testing.T) {
	manager := newTestManager(t)

	if manager.HasValidToken() {
		t.Error("Expected no valid token in a fresh store")
	}

	token := &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := manager.Store().Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !manager.HasValidToken() {
		t.Error("Expected a valid token after save")
	}

	stored, err := manager.StoredToken()
	if err != nil {
		t.Fatalf("StoredToken failed: %v", err)
	}
	if stored.RefreshToken != token.RefreshToken {
		t.Errorf("RefreshToken mismatch: expected %q, got %q", token.RefreshToken, stored.RefreshToken)
	}

	if err := manager.ClearLocalToken(); err != nil {
		t.Fatalf("ClearLocalToken failed: %v", err)
	}

	if manager.HasValidToken() {
		t.Error("Expected no valid token after clear")
	}
}

func TestManagerExpiredTokenIsNotValid(t *testing.T) {
	manager := newTestManager(t)

	token := &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}
	if err := manager.Store().Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if manager.HasValidToken() {
		t.Error("Expected expired token to be reported invalid")
	}
}
