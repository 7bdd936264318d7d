package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/bnema/gcal-token/internal/auth"
	"github.com/bnema/gcal-token/internal/calendar"
	"github.com/bnema/gcal-token/internal/nerdfonts"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for first-time users",
	Long: `Interactive setup wizard that guides you through the complete setup process.

This command guides you through:
- Locating your client secrets JSON file
- Choosing an authorization flow (browser or device)
- Running the consent flow
- Verifying the credential against the Calendar API

Perfect for first-time users who want a guided experience.

Example:
  gcal-token setup`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Printf("%s Welcome to gcal-token!\n\n", nerdfonts.CheckCircle)

	fmt.Println("This setup wizard will guide you through:")
	fmt.Println("1. Locating your client secrets file")
	fmt.Println("2. Choosing an authorization flow")
	fmt.Println("3. Authorizing with Google Calendar")
	fmt.Println("4. Verifying the credential")
	fmt.Println()

	// Step 1: client secrets
	path := secretsPath()
	prompt := &survey.Input{
		Message: "Path to your client secrets JSON file:",
		Default: path,
		Help:    "Download it from the Google Cloud console (APIs & Services > Credentials > OAuth client, type 'Desktop app').",
	}
	if err := survey.AskOne(prompt, &path, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("client secrets file not found: %s", path)
	}

	// Step 2: flow choice
	flowChoice := "browser"
	flowPrompt := &survey.Select{
		Message: "Which authorization flow should be used?",
		Options: []string{"browser", "device"},
		Default: "browser",
		Description: func(value string, index int) string {
			if value == "browser" {
				return "opens a consent page in your browser (recommended)"
			}
			return "prints a code to enter on another device (for headless machines)"
		},
	}
	if err := survey.AskOne(flowPrompt, &flowChoice); err != nil {
		return err
	}

	// Step 3: authorize
	manager, err := auth.NewManager(cacheDir, &auth.Options{
		SecretsPath: path,
		Scopes:      cfg.Auth.Scopes,
		Flow:        auth.Flow(flowChoice),
	}, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", closeErr)
		}
	}()

	if manager.HasValidToken() {
		fmt.Printf("\n%s Already authorized, skipping the consent flow.\n", nerdfonts.CheckCircle)
	} else {
		token, err := manager.Authenticate(cmd.Context())
		if err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}

		fmt.Printf("\n%s Authorization successful!\n", nerdfonts.CheckCircle)
		printRefreshToken(os.Stdout, token)

		saveToken := true
		savePrompt := &survey.Confirm{
			Message: fmt.Sprintf("Write the credential to %s?", cfg.Output.TokenFile),
			Default: true,
		}
		if err := survey.AskOne(savePrompt, &saveToken); err != nil {
			return err
		}
		if saveToken {
			if err := manager.Store().ExportPlain(cfg.Output.TokenFile, token); err != nil {
				return fmt.Errorf("failed to write token file: %w", err)
			}
			fmt.Printf("%s Credential written to %s\n", nerdfonts.Key, cfg.Output.TokenFile)
		}
	}

	// Step 4: verify against the API
	fmt.Printf("\n%s Verifying the credential against the Calendar API...\n", nerdfonts.InfoCircle)

	ctx := cmd.Context()
	client, err := manager.Client(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain authenticated client: %w", err)
	}

	service, err := calendar.NewService(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	if err := service.VerifyAccess(ctx); err != nil {
		fmt.Printf("%s Verification failed: %v\n", nerdfonts.ExclamationTriangle, err)
		fmt.Println("The credential was saved; retry with 'gcal-token calendars' later.")
		return nil
	}

	fmt.Printf("%s Setup complete! The credential works.\n\n", nerdfonts.CheckCircle)
	fmt.Println("Next steps:")
	fmt.Println("  gcal-token token       # print the refresh token again")
	fmt.Println("  gcal-token status      # inspect the stored credential")
	fmt.Println("  gcal-token calendars   # list accessible calendars")

	return nil
}
