// Package tokenstore persists the OAuth credential. The authoritative copy is
// encrypted at rest (token.enc); a plain token.json can be exported for
// interoperability with other Google API tooling.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/bnema/gcal-token/internal/security"
)

const encryptedTokenFile = "token.enc"

// Store persists OAuth tokens under a data directory
type Store struct {
	dataDir   string
	tokenPath string
	encryptor *security.TokenEncryptor
	logger    *security.SecureLogger
}

// New creates a token store rooted at dataDir, creating it if needed
func New(dataDir string, verbose bool) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	encryptor, err := security.NewTokenEncryptor(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token encryption: %w", err)
	}

	return &Store{
		dataDir:   dataDir,
		tokenPath: filepath.Join(dataDir, encryptedTokenFile),
		encryptor: encryptor,
		logger:    security.NewSecureLogger(verbose),
	}, nil
}

// Save encrypts and writes the token to the store
func (s *Store) Save(token *oauth2.Token) error {
	tokenData, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(tokenData)
	if err != nil {
		cryptoErr := security.NewCryptoError("token_encrypt", "failed to encrypt token").WithCause(err)
		s.logger.LogCryptoEvent("token_encrypt", false, cryptoErr.Error())
		return cryptoErr
	}

	if err := writeFileAtomic(s.tokenPath, []byte(encrypted), 0600); err != nil {
		return security.NewTokenError("save", "failed to write token file").WithCause(err)
	}

	s.logger.LogCryptoEvent("token_encrypt", true, "")
	s.logger.LogAuthEvent("token_saved", true, map[string]any{
		"token_path": s.tokenPath,
	})

	return nil
}

// Load reads and decrypts the stored token
func (s *Store) Load() (*oauth2.Token, error) {
	encrypted, err := os.ReadFile(s.tokenPath)
	if err != nil {
		return nil, err
	}

	decrypted, err := s.encryptor.Decrypt(string(encrypted))
	if err != nil {
		cryptoErr := security.NewCryptoError("token_decrypt", "failed to decrypt token").WithCause(err)
		s.logger.LogCryptoEvent("token_decrypt", false, cryptoErr.Error())
		return nil, cryptoErr
	}

	var token oauth2.Token
	if err := json.Unmarshal(decrypted, &token); err != nil {
		return nil, security.NewTokenError("unmarshal", "invalid token data").WithCause(err)
	}

	s.logger.LogCryptoEvent("token_decrypt", true, "")

	return &token, nil
}

// Clear removes the stored token. Missing files are not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.tokenPath); err != nil && !os.IsNotExist(err) {
		return security.NewTokenError("clear", "failed to remove token file").WithCause(err)
	}

	s.logger.LogAuthEvent("token_cleared", true, map[string]any{
		"token_path": s.tokenPath,
	})

	return nil
}

// Exists reports whether a stored token file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.tokenPath)
	return err == nil
}

// Path returns the location of the encrypted token file
func (s *Store) Path() string {
	return s.tokenPath
}

// DataDir returns the store's data directory
func (s *Store) DataDir() string {
	return s.dataDir
}

// ExportPlain writes the token as indented JSON to path (0600). This matches
// the token.json format other Google API tooling expects.
func (s *Store) ExportPlain(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := writeFileAtomic(path, data, 0600); err != nil {
		return security.NewTokenError("export", "failed to write token file").WithCause(err)
	}

	s.logger.LogAuthEvent("token_exported", true, map[string]any{
		"path": path,
	})

	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	tmpName = ""

	return nil
}
