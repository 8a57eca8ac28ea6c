package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// LoadFromUserConfig reads ~/.codedup/config.json and exports its entries as
// environment variables so that the CLI and the servers see one consistent
// option surface.
func LoadFromUserConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		// Best-effort: if we can't resolve home, just skip file loading.
		return nil
	}

	configPath := filepath.Join(home, ".codedup", "config.json")
	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var cfg map[string]string
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return err
	}

	for key, value := range cfg {
		if value == "" {
			continue
		}
		// Explicit env vars win over the config file.
		if os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, value)
	}

	return nil
}
