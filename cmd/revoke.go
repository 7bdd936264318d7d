package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/gcal-token/internal/auth"
	"github.com/bnema/gcal-token/internal/nerdfonts"
)

var localOnlyFlag bool

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke the credential and remove it locally",
	Long: `Revoke the stored credential at Google's revocation endpoint and delete
the local copy. Revoking the refresh token also invalidates every access token
derived from it.

Examples:
  gcal-token revoke               # Revoke at Google and delete locally
  gcal-token revoke --local-only  # Delete the local copy without contacting Google`,
	RunE: runRevoke,
}

func init() {
	revokeCmd.Flags().BoolVar(&localOnlyFlag, "local-only", false, "delete the local credential without contacting Google")
}

func runRevoke(cmd *cobra.Command, args []string) error {
	if localOnlyFlag {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear credential: %w", err)
		}
		fmt.Printf("%s Local credential removed\n", nerdfonts.CheckCircle)
		return nil
	}

	// Full revocation needs the OAuth client, hence the secrets file
	path := secretsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("client secrets file not found: %s (use --local-only to skip revocation)", path)
	}

	manager, err := auth.NewManager(cacheDir, &auth.Options{SecretsPath: path}, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize auth manager: %w", err)
	}
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", closeErr)
		}
	}()

	fmt.Printf("%s Revoking credential...\n", nerdfonts.InfoCircle)
	if err := manager.Revoke(cmd.Context()); err != nil {
		return fmt.Errorf("revocation failed: %w", err)
	}

	fmt.Printf("%s Credential revoked and removed\n", nerdfonts.CheckCircle)
	return nil
}
