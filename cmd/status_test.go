package cmd

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigLocationDefault(t *testing.T) {
	orig := cfgFile
	cfgFile = ""
	defer func() { cfgFile = orig }()

	loc := configLocation()
	want := filepath.Join(".config", "gcal-token", "config.toml")
	if !strings.HasSuffix(loc, want) {
		t.Errorf("Expected resolved path ending in %q, got %q", want, loc)
	}
	if strings.Contains(loc, "$HOME") {
		t.Errorf("Expected no unexpanded variables, got %q", loc)
	}
}

func TestConfigLocationFlagOverride(t *testing.T) {
	orig := cfgFile
	cfgFile = "/tmp/custom.toml"
	defer func() { cfgFile = orig }()

	if loc := configLocation(); loc != "/tmp/custom.toml" {
		t.Errorf("Expected the flag value, got %q", loc)
	}
}
