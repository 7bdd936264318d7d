package main

import (
	"os"
	"path/filepath"

	"github.com/subosito/gotenv"

	"github.com/bnema/gcal-token/cmd"
	"github.com/bnema/gcal-token/internal/logger"
)

// Build-time variables injected by ldflags
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

func main() {
	loadEnvFile()

	cmd.SetVersionInfo(Version, CommitHash, BuildTime)

	if err := cmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// loadEnvFile loads client credential overrides (GCAL_TOKEN_CLIENT_ID,
// GCAL_TOKEN_CLIENT_SECRET) from a .env file. GCAL_TOKEN_ENV_FILE names an
// explicit file; otherwise the working directory is tried first, then the
// user config dir.
func loadEnvFile() {
	if explicit := os.Getenv("GCAL_TOKEN_ENV_FILE"); explicit != "" {
		if err := gotenv.Load(explicit); err != nil {
			logger.Warn("Failed to load env file", "path", explicit, "error", err)
		}
		return
	}

	candidates := []string{".env"}
	if cfgHome, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(cfgHome, "gcal-token", ".env"))
	}

	for _, path := range candidates {
		if err := gotenv.Load(path); err == nil {
			return
		}
	}
}
