package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bnema/gcal-token/internal/security"
)

func callbackRequest(t *testing.T, handler http.Handler, query url.Values) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, rec.Body.String()
}

func TestCallbackHandlerSuccess(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := newCallbackHandler("expected-state", results)

	rec, body := callbackRequest(t, handler, url.Values{
		"state": {"expected-state"},
		"code":  {"4/0Adeu5BWauthcode"},
	})

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(body, "Authorization successful") {
		t.Errorf("Expected success page, got: %s", body)
	}

	select {
	case result := <-results:
		if result.err != nil {
			t.Fatalf("Unexpected error: %v", result.err)
		}
		if result.code != "4/0Adeu5BWauthcode" {
			t.Errorf("Expected authorization code, got %q", result.code)
		}
	default:
		t.Fatal("Expected a result on the channel")
	}
}

func TestCallbackHandlerStateMismatch(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := newCallbackHandler("expected-state", results)

	rec, _ := callbackRequest(t, handler, url.Values{
		"state": {"forged-state"},
		"code":  {"4/0code"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	result := <-results
	if result.err == nil {
		t.Fatal("Expected an error for state mismatch")
	}

	var flowErr *security.AuthFlowError
	if !errors.As(result.err, &flowErr) {
		t.Fatalf("Expected AuthFlowError, got %T", result.err)
	}
	if flowErr.Code != "state_mismatch" {
		t.Errorf("Expected state_mismatch code, got %s", flowErr.Code)
	}
}

func TestCallbackHandlerUserDenied(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := newCallbackHandler("expected-state", results)

	rec, body := callbackRequest(t, handler, url.Values{
		"error": {"access_denied"},
		"state": {"expected-state"},
	})

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for denial page, got %d", rec.Code)
	}
	if !strings.Contains(body, "Authorization failed") {
		t.Errorf("Expected failure page, got: %s", body)
	}

	result := <-results
	var flowErr *security.AuthFlowError
	if !errors.As(result.err, &flowErr) {
		t.Fatalf("Expected AuthFlowError, got %T", result.err)
	}
	if !flowErr.IsUserDenied() {
		t.Errorf("Expected user denial, got code %s", flowErr.Code)
	}
}

func TestCallbackHandlerMissingCode(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := newCallbackHandler("expected-state", results)

	rec, _ := callbackRequest(t, handler, url.Values{
		"state": {"expected-state"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	result := <-results
	var flowErr *security.AuthFlowError
	if !errors.As(result.err, &flowErr) {
		t.Fatalf("Expected AuthFlowError, got %T", result.err)
	}
	if flowErr.Code != "missing_code" {
		t.Errorf("Expected missing_code, got %s", flowErr.Code)
	}
}

func TestCallbackHandlerDuplicateRedirect(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := newCallbackHandler("expected-state", results)

	// A second redirect must not block the handler once the channel is full
	for i := 0; i < 3; i++ {
		rec, _ := callbackRequest(t, handler, url.Values{
			"state": {"expected-state"},
			"code":  {fmt.Sprintf("code-%d", i)},
		})
		if rec.Code != http.StatusOK {
			t.Errorf("Request %d: expected status 200, got %d", i, rec.Code)
		}
	}

	result := <-results
	if result.code != "code-0" {
		t.Errorf("Expected first code to win, got %q", result.code)
	}

	select {
	case extra := <-results:
		t.Errorf("Expected only one result, got extra: %+v", extra)
	default:
	}
}

func TestAuthorizeReleasesPortOnCancel(t *testing.T) {
	// Reserve a port, then hand it to the flow
	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	port := reserved.Addr().(*net.TCPAddr).Port
	if err := reserved.Close(); err != nil {
		t.Fatalf("Failed to release reserved port: %v", err)
	}

	secrets := &ClientSecrets{
		Installed: &clientCredentials{
			ClientID:     "id.apps.googleusercontent.com",
			ClientSecret: "GOCSPX-s",
		},
	}
	flow := NewBrowserFlow(secrets, DefaultScopes, BrowserFlowOptions{
		ListenPort:  port,
		OpenBrowser: false,
	}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := flow.Authorize(ctx); err == nil {
		t.Fatal("Expected an error from a canceled context")
	}

	// The loopback listener must be closed on every return path
	relisten, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("Port still held after Authorize returned: %v", err)
	}
	if err := relisten.Close(); err != nil {
		t.Errorf("Failed to close listener: %v", err)
	}
}

func TestRandomState(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		state, err := randomState()
		if err != nil {
			t.Fatalf("randomState failed: %v", err)
		}
		if len(state) < 40 {
			t.Fatalf("State too short: %d chars", len(state))
		}
		if seen[state] {
			t.Fatal("randomState produced a duplicate")
		}
		seen[state] = true
	}
}
