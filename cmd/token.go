package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/gcal-token/internal/nerdfonts"
	"github.com/bnema/gcal-token/internal/security"
)

var (
	jsonFlag   bool
	exportFlag string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the stored refresh token",
	Long: `Print the refresh token from the stored credential.

The credential must have been obtained with 'gcal-token auth' first.

Examples:
  gcal-token token                     # Print the refresh token
  gcal-token token --json              # Dump the full credential as JSON
  gcal-token token --export token.json # Write a plain token.json copy`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full credential as JSON")
	tokenCmd.Flags().StringVar(&exportFlag, "export", "", "write the credential as plain JSON to this path")
}

func runToken(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	token, err := store.Load()
	if err != nil {
		if hint := credentialLoadHint(err); hint != "" {
			return errors.New(hint)
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}

	if exportFlag != "" {
		if err := store.ExportPlain(exportFlag, token); err != nil {
			return fmt.Errorf("failed to export credential: %w", err)
		}
		fmt.Printf("%s Credential written to %s\n", nerdfonts.Key, exportFlag)
		return nil
	}

	if jsonFlag {
		data, err := json.MarshalIndent(token, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal credential: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if token.RefreshToken == "" {
		return fmt.Errorf("stored credential has no refresh token. Re-run 'gcal-token auth --force'")
	}

	fmt.Printf("Refresh Token: %s\n", token.RefreshToken)
	return nil
}

// credentialLoadHint maps a load failure to recovery guidance. Decryption
// failures mean the store was corrupted or copied from another machine and
// cannot be recovered without re-authorizing.
func credentialLoadHint(err error) string {
	if os.IsNotExist(err) {
		return "no stored credential. Run 'gcal-token auth' first"
	}
	if security.IsCriticalError(err) {
		return "stored credential cannot be decrypted. Run 'gcal-token revoke --local-only', then 'gcal-token auth'"
	}
	return ""
}
