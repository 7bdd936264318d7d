package security

import (
	"strings"
	"testing"
)

func TestRedactRefreshToken(t *testing.T) {
	input := `refresh_token: 1//0gAbCdEfGhIjKlMnOpQrStUvWxYz`
	redacted := RedactString(input)

	if strings.Contains(redacted, "1//0gAbCdEfGhIjKlMnOpQrStUvWxYz") {
		t.Errorf("Refresh token not redacted: %s", redacted)
	}

	if !strings.Contains(redacted, "refresh_token") {
		t.Errorf("Field name should be preserved: %s", redacted)
	}
}

func TestRedactBearerToken(t *testing.T) {
	input := "request sent with Bearer ya29.a0AfH6SMCtest"
	redacted := RedactString(input)

	if strings.Contains(redacted, "ya29.a0AfH6SMCtest") {
		t.Errorf("Bearer token not redacted: %s", redacted)
	}
}

func TestRedactClientSecret(t *testing.T) {
	input := `client_secret: GOCSPX-aaaabbbbccccddddeeee`
	redacted := RedactString(input)

	if strings.Contains(redacted, "GOCSPX-aaaabbbbccccddddeeee") {
		t.Errorf("Client secret not redacted: %s", redacted)
	}
}

func TestRedactEmail(t *testing.T) {
	redacted := RedactString("authorized as user@example.com")

	if strings.Contains(redacted, "user@example.com") {
		t.Errorf("Email not redacted: %s", redacted)
	}
}

func TestRedactURLSecrets(t *testing.T) {
	input := "https://accounts.google.com/o/oauth2/v2/auth?client_id=abc&state=s3cr3tst4t3value&code=4/0Adeu5BW"
	redacted := redactURLSecrets(input)

	if strings.Contains(redacted, "s3cr3tst4t3value") {
		t.Errorf("State parameter not redacted: %s", redacted)
	}

	if strings.Contains(redacted, "4/0Adeu5BW") {
		t.Errorf("Authorization code not redacted: %s", redacted)
	}

	if !strings.HasPrefix(redacted, "https://accounts.google.com/o/oauth2/v2/auth?") {
		t.Errorf("Base URL should be preserved: %s", redacted)
	}
}

func TestRedactPreservesPlainText(t *testing.T) {
	input := "waiting for authorization"
	if got := RedactString(input); got != input {
		t.Errorf("Plain text was altered: %q -> %q", input, got)
	}
}
