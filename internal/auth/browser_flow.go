package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/bnema/gcal-token/internal/nerdfonts"
	"github.com/bnema/gcal-token/internal/security"
)

// DefaultConsentTimeout bounds how long we wait for the user to finish the
// browser consent screen before giving up.
const DefaultConsentTimeout = 5 * time.Minute

// BrowserFlow performs the OAuth 2.0 authorization code flow with a loopback
// redirect: it opens a listener on 127.0.0.1, sends the user's browser to
// Google's consent screen, and blocks until the redirect delivers the code.
type BrowserFlow struct {
	config      *oauth2.Config
	listenPort  int
	openBrowser bool
	timeout     time.Duration
	logger      *security.SecureLogger
}

// BrowserFlowOptions configures the loopback flow
type BrowserFlowOptions struct {
	// ListenPort is the loopback port; 0 picks an ephemeral port.
	ListenPort int
	// OpenBrowser controls whether the consent URL is opened automatically.
	OpenBrowser bool
	// Timeout bounds the wait for the redirect; zero means DefaultConsentTimeout.
	Timeout time.Duration
}

// NewBrowserFlow creates a loopback consent flow for the given client secrets
func NewBrowserFlow(secrets *ClientSecrets, scopes []string, opts BrowserFlowOptions, verbose bool) *BrowserFlow {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConsentTimeout
	}

	return &BrowserFlow{
		config:      secrets.OAuthConfig(scopes),
		listenPort:  opts.ListenPort,
		openBrowser: opts.OpenBrowser,
		timeout:     timeout,
		logger:      security.NewSecureLogger(verbose),
	}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the full consent flow and returns the issued token
func (f *BrowserFlow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	// Generate the flow secrets before opening the listener so every return
	// path past this point goes through the server shutdown.
	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", f.listenPort))
	if err != nil {
		return nil, fmt.Errorf("failed to open loopback listener: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port

	// The redirect URL must match the listener exactly or Google rejects it
	config := *f.config
	config.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	// access_type=offline and prompt=consent make Google issue a refresh token
	authURL := config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", newCallbackHandler(state, results))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			f.logger.Warn("Failed to shut down callback server", "error", err)
		}
	}()

	f.logger.LogAuthEvent("browser_auth_start", true, map[string]any{
		"redirect_port": port,
	})

	f.displayConsentInstructions(authURL)

	if f.openBrowser {
		if err := openBrowser(authURL); err != nil {
			f.logger.Warn("Failed to open browser, continuing with manual URL", "error", err)
			fmt.Printf("%s Could not open a browser automatically. Use the URL above.\n\n", nerdfonts.ExclamationTriangle)
		}
	}

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(f.timeout):
		return nil, fmt.Errorf("timed out after %s waiting for authorization", f.timeout)
	case err := <-serveErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case result = <-results:
	}

	if result.err != nil {
		f.logger.LogAuthEvent("browser_auth_failed", false, map[string]any{
			"error": result.err.Error(),
		})
		return nil, result.err
	}

	token, err := config.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		f.logger.LogAuthEvent("code_exchange", false, map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	f.logger.LogAuthEvent("browser_auth_success", true, map[string]any{
		"has_refresh_token": token.RefreshToken != "",
	})

	return token, nil
}

// displayConsentInstructions shows the user how to complete authorization
func (f *BrowserFlow) displayConsentInstructions(authURL string) {
	fmt.Printf("\n%s Browser Authorization Required\n", nerdfonts.InfoCircle)
	fmt.Printf("════════════════════════════════\n\n")
	fmt.Printf("%s Visit this URL to grant access:\n\n%s\n\n", nerdfonts.Globe, authURL)
	fmt.Printf("%s Waiting for authorization...\n\n", nerdfonts.Timer)
}

// newCallbackHandler returns the handler for the loopback redirect. The state
// comparison is constant-time; the first terminal outcome wins.
func newCallbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errCode := query.Get("error"); errCode != "" {
			writeResultPage(w, http.StatusOK, false, consentDeniedMessage(errCode))
			deliverResult(results, callbackResult{
				err: security.NewAuthFlowError("browser", errCode, query.Get("error_description")),
			})
			return
		}

		gotState := query.Get("state")
		if subtle.ConstantTimeCompare([]byte(gotState), []byte(state)) != 1 {
			writeResultPage(w, http.StatusBadRequest, false, "Invalid state parameter. Close this tab and retry.")
			deliverResult(results, callbackResult{
				err: security.NewAuthFlowError("browser", "state_mismatch", "state parameter does not match"),
			})
			return
		}

		code := query.Get("code")
		if code == "" {
			writeResultPage(w, http.StatusBadRequest, false, "Missing authorization code. Close this tab and retry.")
			deliverResult(results, callbackResult{
				err: security.NewAuthFlowError("browser", "missing_code", "redirect carried no authorization code"),
			})
			return
		}

		writeResultPage(w, http.StatusOK, true, "Authorization complete. You can close this tab and return to the terminal.")
		deliverResult(results, callbackResult{code: code})
	})
}

// deliverResult forwards the first result; duplicate redirects are dropped
func deliverResult(results chan<- callbackResult, result callbackResult) {
	select {
	case results <- result:
	default:
	}
}

func consentDeniedMessage(errCode string) string {
	if errCode == "access_denied" {
		return "Access was denied. Close this tab and rerun the command to try again."
	}
	return fmt.Sprintf("Authorization failed (%s). Close this tab and retry.", errCode)
}

func writeResultPage(w http.ResponseWriter, status int, success bool, message string) {
	heading := "Authorization successful"
	if !success {
		heading = "Authorization failed"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, resultPageHTML, heading, heading, message)
}

const resultPageHTML = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4em;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`

// randomState generates an unguessable CSRF state parameter
func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
