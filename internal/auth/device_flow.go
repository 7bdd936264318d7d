package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/bnema/gcal-token/internal/nerdfonts"
	"github.com/bnema/gcal-token/internal/security"
)

// DeviceFlow performs the OAuth 2.0 device authorization grant. It is the
// fallback for headless machines where no browser can reach the loopback
// redirect.
type DeviceFlow struct {
	clientID     string
	clientSecret string
	scopes       []string
	httpClient   *http.Client
	logger       *security.SecureLogger
}

// DeviceCodeResponse represents the response from the device authorization endpoint
type DeviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// PollError represents an error returned while polling the token endpoint
type PollError struct {
	ErrorCode   string
	Description string
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll error: %s - %s", e.ErrorCode, e.Description)
}

// NewDeviceFlow creates a device authorization flow for the given client secrets
func NewDeviceFlow(secrets *ClientSecrets, scopes []string, verbose bool) *DeviceFlow {
	return &DeviceFlow{
		clientID:     secrets.ClientID(),
		clientSecret: secrets.ClientSecret(),
		scopes:       scopes,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       security.NewSecureLogger(verbose),
	}
}

// Authorize performs the complete device authorization grant
func (d *DeviceFlow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	d.logger.LogAuthEvent("device_auth_start", true, map[string]any{
		"client_id": security.RedactString(d.clientID),
	})

	deviceResp, err := d.requestDeviceCode(ctx)
	if err != nil {
		d.logger.LogAuthEvent("device_code_request", false, map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to request device code: %w", err)
	}

	d.logger.LogAuthEvent("device_code_received", true, map[string]any{
		"user_code":  deviceResp.UserCode,
		"expires_in": deviceResp.ExpiresIn,
		"interval":   deviceResp.Interval,
	})

	d.displayAuthInstructions(deviceResp)

	token, err := d.pollForToken(ctx, deviceResp)
	if err != nil {
		d.logger.LogAuthEvent("device_auth_failed", false, map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	d.logger.LogAuthEvent("device_auth_success", true, map[string]any{
		"has_refresh_token": token.RefreshToken != "",
	})

	return token, nil
}

// requestDeviceCode requests device and user codes from Google's device authorization endpoint
func (d *DeviceFlow) requestDeviceCode(ctx context.Context) (*DeviceCodeResponse, error) {
	params := url.Values{
		"client_id": {d.clientID},
		"scope":     {strings.Join(d.scopes, " ")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, DeviceAuthURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			d.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if errResp.Error == "rate_limit_exceeded" {
				return nil, fmt.Errorf("rate limit exceeded, please try again later")
			}
			return nil, fmt.Errorf("server error: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var deviceResp DeviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&deviceResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if deviceResp.DeviceCode == "" || deviceResp.UserCode == "" || deviceResp.VerificationURL == "" {
		return nil, fmt.Errorf("invalid device code response: missing required fields")
	}

	return &deviceResp, nil
}

// displayAuthInstructions shows the user what they need to do to complete authentication
func (d *DeviceFlow) displayAuthInstructions(deviceResp *DeviceCodeResponse) {
	fmt.Printf("\n%s Device Authorization Required\n", nerdfonts.InfoCircle)
	fmt.Printf("════════════════════════════════\n\n")
	fmt.Printf("%s Please visit: %s\n", nerdfonts.Globe, deviceResp.VerificationURL)
	fmt.Printf("%s Enter code: %s\n\n", nerdfonts.Key, deviceResp.UserCode)

	if deviceResp.ExpiresIn > 0 {
		fmt.Printf("This code expires in %d minutes\n", deviceResp.ExpiresIn/60)
	}

	fmt.Printf("%s Waiting for authorization...\n\n", nerdfonts.Timer)
}

// pollInterval returns the polling interval, defaulting to the RFC 8628
// fallback of 5 seconds when the server omits it
func pollInterval(deviceResp *DeviceCodeResponse) time.Duration {
	if deviceResp.Interval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(deviceResp.Interval) * time.Second
}

// pollForToken polls Google's token endpoint until the user completes authentication
func (d *DeviceFlow) pollForToken(ctx context.Context, deviceResp *DeviceCodeResponse) (*oauth2.Token, error) {
	interval := pollInterval(deviceResp)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.Now().Add(time.Duration(deviceResp.ExpiresIn) * time.Second)
	pollCount := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C:
			pollCount++

			if time.Now().After(deadline) {
				return nil, fmt.Errorf("device code expired after %d polls", pollCount)
			}

			token, err := d.exchangeDeviceCode(ctx, deviceResp.DeviceCode)
			if err != nil {
				var pollErr *PollError
				if errors.As(err, &pollErr) {
					switch pollErr.ErrorCode {
					case "authorization_pending":
						// User hasn't authorized yet, continue polling
						continue
					case "slow_down":
						interval += 5 * time.Second
						ticker.Reset(interval)
						d.logger.LogAuthEvent("poll_slow_down", true, map[string]any{
							"new_interval": interval.String(),
							"poll_count":   pollCount,
						})
						continue
					case "access_denied":
						return nil, security.NewAuthFlowError("device", "access_denied", "user denied access")
					case "expired_token":
						return nil, fmt.Errorf("device code expired")
					default:
						return nil, fmt.Errorf("authentication error: %s", pollErr.Description)
					}
				}
				return nil, err
			}

			d.logger.LogAuthEvent("poll_success", true, map[string]any{
				"poll_count": pollCount,
			})

			return token, nil
		}
	}
}

// exchangeDeviceCode exchanges the device code for an access token
func (d *DeviceFlow) exchangeDeviceCode(ctx context.Context, deviceCode string) (*oauth2.Token, error) {
	params := url.Values{
		"client_id":     {d.clientID},
		"client_secret": {d.clientSecret},
		"device_code":   {deviceCode},
		"grant_type":    {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			d.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusOK {
		var tokenResp tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
			return nil, fmt.Errorf("failed to decode token response: %w", err)
		}

		if tokenResp.AccessToken == "" || tokenResp.ExpiresIn <= 0 {
			return nil, fmt.Errorf("invalid token response: missing required fields")
		}

		return &oauth2.Token{
			AccessToken:  tokenResp.AccessToken,
			RefreshToken: tokenResp.RefreshToken,
			TokenType:    tokenResp.TokenType,
			Expiry:       time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		}, nil
	}

	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return nil, fmt.Errorf("unexpected status code %d and failed to decode error", resp.StatusCode)
	}

	return nil, &PollError{
		ErrorCode:   errResp.Error,
		Description: errResp.ErrorDescription,
	}
}
