package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store, err := New(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	token := testToken()
	if err := store.Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.AccessToken != token.AccessToken {
		t.Errorf("AccessToken mismatch: expected %q, got %q", token.AccessToken, loaded.AccessToken)
	}
	if loaded.RefreshToken != token.RefreshToken {
		t.Errorf("RefreshToken mismatch: expected %q, got %q", token.RefreshToken, loaded.RefreshToken)
	}
	if !loaded.Expiry.Equal(token.Expiry) {
		t.Errorf("Expiry mismatch: expected %v, got %v", token.Expiry, loaded.Expiry)
	}
}

func TestStoreEncryptsAtRest(t *testing.T) {
	store, err := New(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	token := testToken()
	if err := store.Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read token file: %v", err)
	}

	if strings.Contains(string(raw), token.RefreshToken) {
		t.Error("Refresh token stored in plaintext")
	}
	if strings.Contains(string(raw), token.AccessToken) {
		t.Error("Access token stored in plaintext")
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Failed to stat token file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected token file permissions 0600, got %o", info.Mode().Perm())
	}
}

func TestStoreClear(t *testing.T) {
	store, err := New(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Clearing a missing token is not an error
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on empty store failed: %v", err)
	}

	if err := store.Save(testToken()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !store.Exists() {
		t.Fatal("Expected token to exist after save")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if store.Exists() {
		t.Error("Expected token to be gone after clear")
	}

	if _, err := store.Load(); err == nil {
		t.Error("Expected Load to fail after clear")
	}
}

func TestStoreExportPlain(t *testing.T) {
	tempDir := t.TempDir()
	store, err := New(tempDir, false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	token := testToken()
	exportPath := filepath.Join(tempDir, "token.json")

	if err := store.ExportPlain(exportPath, token); err != nil {
		t.Fatalf("ExportPlain failed: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("Failed to read exported file: %v", err)
	}

	var exported oauth2.Token
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("Exported file is not valid token JSON: %v", err)
	}

	if exported.RefreshToken != token.RefreshToken {
		t.Errorf("RefreshToken mismatch in export: expected %q, got %q", token.RefreshToken, exported.RefreshToken)
	}

	info, err := os.Stat(exportPath)
	if err != nil {
		t.Fatalf("Failed to stat exported file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected exported file permissions 0600, got %o", info.Mode().Perm())
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "out.json")

	if err := writeFileAtomic(target, []byte("data"), 0600); err != nil {
		t.Fatalf("writeFileAtomic failed: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}

	if len(entries) != 1 || entries[0].Name() != "out.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only out.json, got %v", names)
	}
}
