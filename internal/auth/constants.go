package auth

// OAuth 2.0 identifiers & endpoints for Google Calendar API.
// Client ID & Secret are variables (not const) so they can be replaced at build time via:
//   go build -ldflags "-X github.com/bnema/gcal-token/internal/auth.GoogleOAuthClientID=YOUR_ID -X github.com/bnema/gcal-token/internal/auth.GoogleOAuthClientSecret=YOUR_SECRET"
// NOTE: Shipping a real client secret in an open-source binary offers no secrecy; prefer user-provided credentials.

var (
	// Default public OAuth 2.0 Client ID (safe to publish)
	GoogleOAuthClientID = ""
	// Left empty by default; supply if the Google project requires a secret for device flow.
	GoogleOAuthClientSecret = ""
)

// Static constants
const (
	DeviceAuthURL = "https://oauth2.googleapis.com/device/code"
	TokenURL      = "https://oauth2.googleapis.com/token"
	RevokeURL     = "https://oauth2.googleapis.com/revoke"

	ScopeCalendar         = "https://www.googleapis.com/auth/calendar"
	ScopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"
)

// DefaultScopes is the scope set requested when none is configured.
// Full calendar access matches what the Google Cloud console suggests for
// installed applications that manage events.
var DefaultScopes = []string{ScopeCalendar}
