package security

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestTokenEncryptionRoundtrip(t *testing.T) {
	tempDir := t.TempDir()

	encryptor, err := NewTokenEncryptor(tempDir)
	if err != nil {
		t.Fatalf("Failed to create TokenEncryptor: %v", err)
	}

	testToken := []byte(`{"access_token":"ya29.test","refresh_token":"1//test","token_type":"Bearer","expiry":"2026-01-01T00:00:00Z"}`)

	encrypted, err := encryptor.Encrypt(testToken)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	if bytes.Equal([]byte(encrypted), testToken) {
		t.Error("Encryption failed: ciphertext equals plaintext")
	}

	if len(encrypted) == 0 {
		t.Error("Encryption produced empty result")
	}

	decrypted, err := encryptor.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}

	if !bytes.Equal(decrypted, testToken) {
		t.Errorf("Decryption failed: expected %s, got %s", string(testToken), string(decrypted))
	}
}

func TestTokenEncryptionEmptyInput(t *testing.T) {
	tempDir := t.TempDir()
	encryptor, err := NewTokenEncryptor(tempDir)
	if err != nil {
		t.Fatalf("Failed to create TokenEncryptor: %v", err)
	}

	if _, err := encryptor.Encrypt([]byte{}); err == nil {
		t.Error("Expected error for empty plaintext, got nil")
	}

	if _, err := encryptor.Decrypt(""); err == nil {
		t.Error("Expected error for empty ciphertext, got nil")
	}
}

func TestTokenEncryptionInvalidInput(t *testing.T) {
	tempDir := t.TempDir()
	encryptor, err := NewTokenEncryptor(tempDir)
	if err != nil {
		t.Fatalf("Failed to create TokenEncryptor: %v", err)
	}

	if _, err := encryptor.Decrypt("invalid_base64!"); err == nil {
		t.Error("Expected error for invalid base64, got nil")
	}

	// "test" in base64, too short to contain a nonce
	if _, err := encryptor.Decrypt("dGVzdA=="); err == nil {
		t.Error("Expected error for short ciphertext, got nil")
	}
}

func TestTokenEncryptionConsistency(t *testing.T) {
	tempDir := t.TempDir()

	// Two encryptors sharing the same data directory share the same salt
	encryptor1, err := NewTokenEncryptor(tempDir)
	if err != nil {
		t.Fatalf("Failed to create first TokenEncryptor: %v", err)
	}

	encryptor2, err := NewTokenEncryptor(tempDir)
	if err != nil {
		t.Fatalf("Failed to create second TokenEncryptor: %v", err)
	}

	testToken := []byte(`{"access_token":"test_token","refresh_token":"test_refresh"}`)

	encrypted, err := encryptor1.Encrypt(testToken)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	decrypted, err := encryptor2.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Cross-encryptor decryption failed: %v", err)
	}

	if !bytes.Equal(decrypted, testToken) {
		t.Error("Cross-encryptor decryption produced different result")
	}
}

func TestSaltGeneration(t *testing.T) {
	tempDir := t.TempDir()

	salt1, err := generateOrLoadSalt(tempDir)
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}

	if len(salt1) != saltSize {
		t.Errorf("Expected salt length %d, got %d", saltSize, len(salt1))
	}

	salt2, err := generateOrLoadSalt(tempDir)
	if err != nil {
		t.Fatalf("Failed to load salt: %v", err)
	}

	if !bytes.Equal(salt1, salt2) {
		t.Error("Loaded salt differs from generated salt")
	}

	saltPath := filepath.Join(tempDir, ".salt")
	info, err := os.Stat(saltPath)
	if err != nil {
		t.Fatalf("Salt file does not exist: %v", err)
	}

	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected salt file permissions 0600, got %o", info.Mode().Perm())
	}
}

func TestMachineIDFallback(t *testing.T) {
	machineID, err := getMachineID()
	if err != nil {
		t.Fatalf("getMachineID failed: %v", err)
	}

	if len(machineID) < 8 {
		t.Errorf("Machine ID too short: %s", machineID)
	}

	machineID2, err := getMachineID()
	if err != nil {
		t.Fatalf("getMachineID failed on second call: %v", err)
	}

	if machineID != machineID2 {
		t.Error("Machine ID not consistent between calls")
	}
}

func TestEncryptionUniqueness(t *testing.T) {
	tempDir := t.TempDir()
	encryptor, err := NewTokenEncryptor(tempDir)
	if err != nil {
		t.Fatalf("Failed to create TokenEncryptor: %v", err)
	}

	testToken := []byte(`{"access_token":"test_token"}`)

	encrypted1, err := encryptor.Encrypt(testToken)
	if err != nil {
		t.Fatalf("First encryption failed: %v", err)
	}

	encrypted2, err := encryptor.Encrypt(testToken)
	if err != nil {
		t.Fatalf("Second encryption failed: %v", err)
	}

	// Random nonces make identical plaintexts encrypt differently
	if encrypted1 == encrypted2 {
		t.Error("Two encryptions of the same plaintext produced identical ciphertext")
	}

	decrypted1, err := encryptor.Decrypt(encrypted1)
	if err != nil {
		t.Fatalf("First decryption failed: %v", err)
	}

	decrypted2, err := encryptor.Decrypt(encrypted2)
	if err != nil {
		t.Fatalf("Second decryption failed: %v", err)
	}

	if !bytes.Equal(decrypted1, testToken) || !bytes.Equal(decrypted2, testToken) {
		t.Error("Decrypted data doesn't match original")
	}
}
