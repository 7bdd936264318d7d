package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/gcal-token/internal/auth"
	"github.com/bnema/gcal-token/internal/calendar"
	"github.com/bnema/gcal-token/internal/nerdfonts"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List calendars accessible with the credential",
	Long: `List all calendars accessible with your Google account.

This doubles as an end-to-end check that the stored credential is accepted by
the Calendar API. An expired access token is refreshed automatically.

Example:
  gcal-token calendars`,
	RunE: runCalendars,
}

func runCalendars(cmd *cobra.Command, args []string) error {
	path := secretsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("client secrets file not found: %s", path)
	}

	manager, err := auth.NewManager(cacheDir, &auth.Options{SecretsPath: path, Scopes: cfg.Auth.Scopes}, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize auth manager: %w", err)
	}
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", closeErr)
		}
	}()

	if !manager.HasValidToken() && !manager.Store().Exists() {
		return fmt.Errorf("authorization required. Run 'gcal-token auth' first")
	}

	ctx := cmd.Context()
	client, err := manager.Client(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain authenticated client: %w", err)
	}

	service, err := calendar.NewService(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	calendars, err := service.ListCalendars(ctx)
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}

	fmt.Println("=== Available Calendars ===")
	for _, cal := range calendars {
		marker := nerdfonts.Calendar
		if cal.Primary {
			marker = nerdfonts.CalendarCheck
		}
		fmt.Printf("%s %s\n", marker, cal.Summary)
		fmt.Printf("   ID: %s\n", cal.Id)
	}

	fmt.Printf("\n%s Credential verified: %d calendars accessible\n", nerdfonts.CheckCircle, len(calendars))
	return nil
}
