package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/bnema/gcal-token/internal/auth"
	"github.com/bnema/gcal-token/internal/nerdfonts"
	"github.com/bnema/gcal-token/internal/security"
)

var (
	deviceFlag    bool
	noBrowserFlag bool
	portFlag      int
	forceFlag     bool
	outputFlag    string
	noSaveFlag    bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize with Google Calendar and print the refresh token",
	Long: `Run the OAuth 2.0 consent flow against Google Calendar.

By default this opens your browser at Google's consent screen and waits on a
loopback listener for the redirect. The refresh token is printed and the full
credential is written to token.json. Use --device on headless machines.

You'll need a client secrets JSON file (credentials.json) from the Google
Cloud console, created for an OAuth "Desktop app" client.

Examples:
  gcal-token auth                        # Browser consent flow
  gcal-token auth --device               # Device code flow for headless use
  gcal-token auth --no-browser           # Print the URL instead of opening a browser
  gcal-token auth --force                # Re-authorize even if a valid token exists
  gcal-token auth --output creds.json    # Write the credential somewhere else`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().BoolVar(&deviceFlag, "device", false, "use the device code flow instead of the browser")
	authCmd.Flags().BoolVar(&noBrowserFlag, "no-browser", false, "print the consent URL instead of opening a browser")
	authCmd.Flags().IntVar(&portFlag, "port", 0, "loopback port for the redirect (0 = ephemeral)")
	authCmd.Flags().BoolVar(&forceFlag, "force", false, "re-authorize even when a valid token exists")
	authCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "path for the plain token JSON (default from config)")
	authCmd.Flags().BoolVar(&noSaveFlag, "no-save", false, "skip writing the plain token JSON file")
}

func runAuth(cmd *cobra.Command, args []string) error {
	path := secretsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to environment or build-time credentials when the
		// conventional credentials.json is absent and no flag was given
		if credentialsPath == "" && auth.HasBuiltinCredentials() {
			path = ""
		} else {
			return fmt.Errorf("client secrets file not found: %s (download it from the Google Cloud console)", path)
		}
	}

	opts := buildAuthOptions(path)

	manager, err := auth.NewManager(cacheDir, opts, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize auth manager: %w", err)
	}
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", closeErr)
		}
	}()

	if manager.HasValidToken() && !forceFlag {
		fmt.Printf("%s Already authorized with Google Calendar\n", nerdfonts.CheckCircle)
		fmt.Println("Use --force to re-authorize, or 'gcal-token token' to print the refresh token.")
		return nil
	}

	token, err := manager.Authenticate(cmd.Context())
	if err != nil {
		var flowErr *security.AuthFlowError
		if errors.As(err, &flowErr) && flowErr.IsUserDenied() {
			return fmt.Errorf("authorization was denied on the consent screen")
		}
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Printf("%s Authorization successful!\n\n", nerdfonts.CheckCircle)

	if cfg.Output.PrintRefreshToken {
		printRefreshToken(os.Stdout, token)
	}

	if !noSaveFlag {
		exportPath := outputFlag
		if exportPath == "" {
			exportPath = cfg.Output.TokenFile
		}
		if err := manager.Store().ExportPlain(exportPath, token); err != nil {
			return fmt.Errorf("failed to write token file: %w", err)
		}
		fmt.Printf("\n%s Credential written to %s\n", nerdfonts.Key, exportPath)
	}

	return nil
}

// printRefreshToken writes the refresh token line. Google only issues a
// refresh token on the first consent for a client, so a missing one gets
// recovery guidance instead.
func printRefreshToken(w io.Writer, token *oauth2.Token) {
	if token.RefreshToken == "" {
		fmt.Fprintf(w, "%s No refresh token was issued. Google only returns one on the first\n", nerdfonts.ExclamationTriangle)
		fmt.Fprintln(w, "consent for a client; revoke access at myaccount.google.com and retry,")
		fmt.Fprintln(w, "or run with --force to request consent again.")
		return
	}
	fmt.Fprintf(w, "Refresh Token: %s\n", token.RefreshToken)
}

// buildAuthOptions merges config defaults with command-line flags
func buildAuthOptions(secretsFile string) *auth.Options {
	flow := auth.Flow(cfg.Auth.Flow)
	if deviceFlag {
		flow = auth.FlowDevice
	}

	port := cfg.Auth.ListenPort
	if portFlag != 0 {
		port = portFlag
	}

	return &auth.Options{
		SecretsPath: secretsFile,
		Scopes:      cfg.Auth.Scopes,
		Flow:        flow,
		NoBrowser:   noBrowserFlag || !cfg.Auth.OpenBrowser,
		ListenPort:  port,
	}
}
