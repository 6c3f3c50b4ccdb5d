package agpatch

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigParsesKeyValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agpatch.conf")
	mustWrite(t, path, `
# comment
AGPATCH_LOCALE=en-US
AGPATCH_INSTALL_PATH="/opt/antigravity"
AGPATCH_DEBUG = 1
malformed line without equals is skipped by the equals check? no
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Values["AGPATCH_LOCALE"] != "en-US" {
		t.Fatalf("AGPATCH_LOCALE = %q", cfg.Values["AGPATCH_LOCALE"])
	}
	if cfg.Values["AGPATCH_INSTALL_PATH"] != "/opt/antigravity" {
		t.Fatalf("quotes not stripped: %q", cfg.Values["AGPATCH_INSTALL_PATH"])
	}
	if cfg.Values["AGPATCH_DEBUG"] != "1" {
		t.Fatalf("AGPATCH_DEBUG = %q", cfg.Values["AGPATCH_DEBUG"])
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agpatch.conf")
	mustWrite(t, path, "AGPATCH_LOCALE=zh-CN\n")

	t.Setenv("AGPATCH_LOCALE", "en-US")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Values["AGPATCH_LOCALE"] != "en-US" {
		t.Fatalf("env override lost: %q", cfg.Values["AGPATCH_LOCALE"])
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("missing config file should not error, got %v", err)
	}
	if cfg == nil || cfg.Values == nil {
		t.Fatal("expected usable empty config")
	}
}

func TestSetConfigValuePersists(t *testing.T) {
	dir := t.TempDir()
	old := ConfigFile
	ConfigFile = filepath.Join(dir, "agpatch.conf")
	t.Cleanup(func() { ConfigFile = old })

	cfg := &Config{Values: map[string]string{}}
	if err := setConfigValue(cfg, "AGPATCH_LOCALE", "en-US"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := loadConfig(ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Values["AGPATCH_LOCALE"] != "en-US" {
		t.Fatalf("persisted value = %q", reloaded.Values["AGPATCH_LOCALE"])
	}
}

func TestReadDeployedFeatureConfigDefaults(t *testing.T) {
	cfg, err := readDeployedFeatureConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != defaultFeatureConfig() {
		t.Fatalf("missing config should yield defaults, got %+v", cfg)
	}
}

func TestReadDeployedFeatureConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	mustWrite(t, path, `{"mermaid": false, "fontSize": 15}`)

	cfg, err := readDeployedFeatureConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mermaid {
		t.Fatal("mermaid override lost")
	}
	if cfg.FontSize != 15 {
		t.Fatalf("fontSize = %v", cfg.FontSize)
	}
	// Fields absent from the file keep their defaults.
	if !cfg.Math || !cfg.CopyButton {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}
