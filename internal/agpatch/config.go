package agpatch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config struct
type Config struct {
	Values map[string]string
}

// configPath returns the per-user config file location, honoring an
// explicit ConfigFile override.
func configPath() string {
	if ConfigFile != "" {
		return ConfigFile
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "agpatch", "agpatch.conf")
}

// Load the agpatch.conf key=value file and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)

	return cfg, nil
}

// Merge AGPATCH_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "AGPATCH_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func initConfig(cfg *Config) {
	Debug = cfg.Values["AGPATCH_DEBUG"] == "1"

	Locale = cfg.Values["AGPATCH_LOCALE"]
	if Locale == "" {
		// LANG=en_US.UTF-8 style values select English, everything else
		// keeps the product default (Chinese).
		Locale = os.Getenv("LANG")
	}

	SavedPath = cfg.Values["AGPATCH_INSTALL_PATH"]

	PatchesDir = cfg.Values["AGPATCH_PATCHES_DIR"]
	if PatchesDir != "" && !dirExists(PatchesDir) {
		cPrintf(colWarn, "Configured patches dir does not exist: %s\n", PatchesDir)
		PatchesDir = ""
	}
}

// setConfigValue updates one key in the config file, rewriting it with all
// current values, and re-applies the derived globals.
func setConfigValue(cfg *Config, key, value string) error {
	cfg.Values[key] = value

	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	keys := make([]string, 0, len(cfg.Values))
	for k := range cfg.Values {
		// Env-only overrides are not persisted back.
		if os.Getenv(k) == cfg.Values[k] && k != key {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# agpatch configuration\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, cfg.Values[k])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	initConfig(cfg)
	return nil
}
