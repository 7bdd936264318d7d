package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bnema/gcal-token/internal/config"
	"github.com/bnema/gcal-token/internal/logger"
	"github.com/bnema/gcal-token/internal/tokenstore"
)

var (
	cacheDir        string
	verbose         bool
	credentialsPath string
	cfgFile         string
	cfg             *config.Config

	// Version information
	version    string
	commitHash string
	buildTime  string
)

var rootCmd = &cobra.Command{
	Use:   "gcal-token",
	Short: "Obtain and manage Google Calendar OAuth2 refresh tokens",
	Long: `A CLI tool that runs the Google OAuth2 consent flow for the Calendar API,
prints the resulting refresh token, and keeps the credential safe on disk.

gcal-token opens a browser-based consent screen (or a device-code flow for
headless machines), exchanges the authorization for a token, prints the
refresh token, and writes a token.json other Google API tooling can reuse.
The authoritative copy is kept encrypted at rest.`,
}

func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, commit, buildTimeStr string) {
	version = v
	commitHash = commit
	buildTime = buildTimeStr

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commitHash, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default: ~/.cache/gcal-token)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gcal-token/config.toml)")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "", "path to client secrets JSON file (default: credentials.json)")

	// Add subcommands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(calendarsCmd)
}

func initConfig() {
	// Initialize logger with verbose flag
	logger.Init(verbose)

	if cacheDir == "" {
		defaultCacheDir, err := getDefaultCacheDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting default cache directory: %v\n", err)
			os.Exit(1)
		}
		cacheDir = defaultCacheDir
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Configuration loaded", "path", configLocation(), "flow", cfg.Auth.Flow)
}

func getDefaultCacheDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cache", "gcal-token"), nil
}

// secretsPath resolves the client secrets file: flag first, then the
// conventional credentials.json in the working directory.
func secretsPath() string {
	if credentialsPath != "" {
		return credentialsPath
	}
	return "credentials.json"
}

// openStore opens the token store without requiring client secrets
func openStore() (*tokenstore.Store, error) {
	store, err := tokenstore.New(cacheDir, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	return store, nil
}
