package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bnema/gcal-token/internal/security"
)

type Config struct {
	Auth   AuthConfig   `mapstructure:"auth"`
	Output OutputConfig `mapstructure:"output"`
}

type AuthConfig struct {
	Scopes      []string `mapstructure:"scopes"`
	Flow        string   `mapstructure:"flow"`
	ListenPort  int      `mapstructure:"listen_port"`
	OpenBrowser bool     `mapstructure:"open_browser"`
}

type OutputConfig struct {
	TokenFile         string `mapstructure:"token_file"`
	PrintRefreshToken bool   `mapstructure:"print_refresh_token"`
}

var defaultConfig = Config{
	Auth: AuthConfig{
		Scopes:      []string{"https://www.googleapis.com/auth/calendar"},
		Flow:        "browser",
		ListenPort:  0,
		OpenBrowser: true,
	},
	Output: OutputConfig{
		TokenFile:         "token.json",
		PrintRefreshToken: true,
	},
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigName("config")

	if configPath == "" {
		configDir, err := GetDefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		configPath = configDir
	}

	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// If config file doesn't exist, create it with defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createDefaultConfig(configPath); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
			if err := v.ReadInConfig(); err != nil {
				// If it still fails, just use defaults
				return &defaultConfig, nil
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, security.NewConfigError("config", "", "cannot be parsed").WithCause(err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate rejects values the auth flows cannot work with
func validate(c *Config) error {
	switch c.Auth.Flow {
	case "browser", "device":
	default:
		return security.NewConfigError("auth.flow", c.Auth.Flow, `must be "browser" or "device"`)
	}

	if c.Auth.ListenPort < 0 || c.Auth.ListenPort > 65535 {
		return security.NewConfigError("auth.listen_port", fmt.Sprint(c.Auth.ListenPort), "must be a valid port number")
	}

	if len(c.Auth.Scopes) == 0 {
		return security.NewConfigError("auth.scopes", "", "at least one scope is required")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.scopes", defaultConfig.Auth.Scopes)
	v.SetDefault("auth.flow", defaultConfig.Auth.Flow)
	v.SetDefault("auth.listen_port", defaultConfig.Auth.ListenPort)
	v.SetDefault("auth.open_browser", defaultConfig.Auth.OpenBrowser)

	v.SetDefault("output.token_file", defaultConfig.Output.TokenFile)
	v.SetDefault("output.print_refresh_token", defaultConfig.Output.PrintRefreshToken)
}

func createDefaultConfig(configPath string) error {
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.toml")

	if _, err := os.Stat(configFile); err == nil {
		return nil // Already exists
	}

	configContent := `# gcal-token configuration

[auth]
scopes = ["https://www.googleapis.com/auth/calendar"]
flow = "browser"    # "browser" (loopback redirect) or "device" (code entry)
listen_port = 0     # 0 = pick an ephemeral loopback port
open_browser = true

[output]
token_file = "token.json"   # plain-JSON credential written after auth
print_refresh_token = true
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigDir returns the directory searched for config.toml when no
// --config flag is given.
func GetDefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gcal-token"), nil
}
