package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SQRT_CONFIG_PATH: config file location (default: ~/.config/sqrt.toml)
//   - SQRT_HOME: base directory for sqrt data (default: ~/.local/share/sqrt)
//   - SQRT_ENV_FILE: optional secrets file (default: <base dir>/.env)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	envFile := os.Getenv("SQRT_ENV_FILE")
	if envFile == "" {
		envFile = filepath.Join(baseDir, ".env")
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"env_file":    envFile,
	}, nil
}

// getConfigPath returns the config file path, checking SQRT_CONFIG_PATH first,
// then falling back to ~/.config/sqrt.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SQRT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sqrt.toml"), nil
}

// getBaseDir returns the base directory for sqrt data, checking SQRT_HOME first,
// then falling back to the XDG default ~/.local/share/sqrt.
func getBaseDir() (string, error) {
	if path := os.Getenv("SQRT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "sqrt"), nil
}
