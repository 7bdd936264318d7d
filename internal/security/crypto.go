package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize         = 32
	pbkdf2Iterations = 100000
)

// TokenEncryptor provides encryption at rest for OAuth tokens. The key is
// derived from machine identity and user home so the token file cannot be
// copied to another machine and decrypted there.
type TokenEncryptor struct {
	derivedKey []byte
}

// NewTokenEncryptor creates a token encryptor keyed to this machine and user.
// The salt lives next to the token file in dataDir.
func NewTokenEncryptor(dataDir string) (*TokenEncryptor, error) {
	salt, err := generateOrLoadSalt(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	machineID, err := getMachineID()
	if err != nil {
		return nil, fmt.Errorf("failed to get machine ID: %w", err)
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	keyMaterial := fmt.Sprintf("%s:%s", machineID, userHome)
	derivedKey := pbkdf2.Key([]byte(keyMaterial), salt, pbkdf2Iterations, 32, sha256.New)

	return &TokenEncryptor{derivedKey: derivedKey}, nil
}

// Encrypt encrypts plaintext data and returns base64-encoded ciphertext
func (te *TokenEncryptor) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", fmt.Errorf("plaintext cannot be empty")
	}

	gcm, err := te.newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64-encoded ciphertext and returns plaintext
func (te *TokenEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if ciphertext == "" {
		return nil, fmt.Errorf("ciphertext cannot be empty")
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	gcm, err := te.newGCM()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

func (te *TokenEncryptor) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(te.derivedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

// generateOrLoadSalt generates a new salt or loads the existing one from dataDir
func generateOrLoadSalt(dataDir string) ([]byte, error) {
	saltPath := filepath.Join(dataDir, ".salt")

	if salt, err := os.ReadFile(saltPath); err == nil && len(salt) == saltSize {
		return salt, nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate random salt: %w", err)
	}

	// Save salt with restrictive permissions
	if err := os.WriteFile(saltPath, salt, 0600); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}

	return salt, nil
}

// getMachineID reads the machine ID from /etc/machine-id or fallback sources
func getMachineID() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			return string(data[:min(len(data), 32)]), nil
		}
	}

	// Fallback: hostname + user ID
	hostname, _ := os.Hostname()
	fallback := fmt.Sprintf("%s-%d", hostname, os.Getuid())

	if len(fallback) < 8 {
		return "fallback-machine-id", nil
	}

	return fallback, nil
}
