package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/gcal-token/internal/config"
	"github.com/bnema/gcal-token/internal/nerdfonts"
	"github.com/bnema/gcal-token/internal/security"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the stored credential",
	Long: `Display the current credential status including:
- Whether a credential is stored and still valid
- Access token expiry
- Whether a refresh token is present
- File locations in use

This command never contacts Google; it only inspects local state.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Credential Status ===")

	store, err := openStore()
	if err != nil {
		return err
	}

	fmt.Printf("Cache directory: %s\n", store.DataDir())
	fmt.Printf("Token file: %s\n", store.Path())
	fmt.Printf("Config file: %s\n\n", configLocation())

	token, err := store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("%s Credential: None (run 'gcal-token auth')\n", nerdfonts.ExclamationCircle)
			return nil
		}
		if security.IsCriticalError(err) {
			fmt.Printf("%s Credential: Undecryptable (run 'gcal-token revoke --local-only', then 'gcal-token auth')\n", nerdfonts.ExclamationTriangle)
			return nil
		}
		fmt.Printf("%s Credential: Unreadable (%v)\n", nerdfonts.ExclamationTriangle, err)
		return nil
	}

	if token.Valid() {
		fmt.Printf("%s Access token: Valid\n", nerdfonts.CheckCircle)
	} else {
		fmt.Printf("%s Access token: Expired\n", nerdfonts.ExclamationCircle)
	}

	if !token.Expiry.IsZero() {
		if remaining := time.Until(token.Expiry); remaining > 0 {
			fmt.Printf("Expires: %s (in %s)\n",
				token.Expiry.Format("2006-01-02 15:04:05"),
				remaining.Truncate(time.Second))
		} else {
			fmt.Printf("Expired: %s (%s ago)\n",
				token.Expiry.Format("2006-01-02 15:04:05"),
				(-remaining).Truncate(time.Second))
		}
	}

	if token.RefreshToken != "" {
		fmt.Printf("%s Refresh token: Present\n", nerdfonts.Key)
	} else {
		fmt.Printf("%s Refresh token: Missing (re-run 'gcal-token auth --force')\n", nerdfonts.ExclamationTriangle)
	}

	return nil
}

func configLocation() string {
	if cfgFile != "" {
		return cfgFile
	}
	dir, err := config.GetDefaultConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}
