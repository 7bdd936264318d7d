package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SecureHTTPClient is a hardened HTTP client restricted to a single base host.
// It is used for direct calls to Google's token and revocation endpoints.
type SecureHTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewSecureHTTPClient creates a hardened HTTP client bound to baseURL
func NewSecureHTTPClient(baseURL string) (*SecureHTTPClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}

	transport := &http.Transport{
		TLSClientConfig:       tlsConfig,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Don't follow redirects to prevent redirect attacks
			return http.ErrUseLastResponse
		},
	}

	return &SecureHTTPClient{
		client:  client,
		baseURL: baseURL,
	}, nil
}

// Do executes an HTTP request with security headers and host validation
func (sc *SecureHTTPClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "gcal-token/1.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	if !sc.isAllowedURL(req.URL.String()) {
		return nil, fmt.Errorf("request URL not allowed: %s", req.URL.String())
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	return resp, nil
}

// PostFormWithContext performs a form-encoded POST with context
func (sc *SecureHTTPClient) PostFormWithContext(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return sc.Do(req)
}

// Close closes idle connections in the underlying HTTP client
func (sc *SecureHTTPClient) Close() {
	if sc.client != nil {
		if transport, ok := sc.client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
}

// isAllowedURL checks if the URL shares scheme and host with the base URL
func (sc *SecureHTTPClient) isAllowedURL(reqURL string) bool {
	parsedReqURL, err := url.Parse(reqURL)
	if err != nil {
		return false
	}

	parsedBaseURL, err := url.Parse(sc.baseURL)
	if err != nil {
		return false
	}

	return parsedReqURL.Scheme == parsedBaseURL.Scheme &&
		parsedReqURL.Host == parsedBaseURL.Host
}
