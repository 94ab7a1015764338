package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const defaultDBName = "rebalance.db"

const (
	envDataDir = "REBALANCE_DATA_DIR"
	envDBPath  = "REBALANCE_DB_PATH"
)

// UserConfig is the persisted on-disk configuration.
type UserConfig struct {
	DBName  string `json:"db_name"`
	DataDir string `json:"data_dir"`
}

var runtimeDataDir string
var runtimePort = 8000

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// SetRuntimeDataDir overrides the data directory for this process,
// typically from a command-line flag.
func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

func GetRuntimePort() int {
	return runtimePort
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Rebalance"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "Rebalance"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "rebalance"), nil
	}
	return filepath.Join(configDir, "rebalance"), nil
}

func appConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadUserConfig reads the persisted configuration, falling back to
// defaults when the file is missing or unreadable.
func LoadUserConfig() UserConfig {
	defaults := UserConfig{DBName: defaultDBName}
	path, err := appConfigPath()
	if err != nil {
		return defaults
	}
	file, err := os.Open(path)
	if err != nil {
		return defaults
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&defaults); err != nil {
		return defaults
	}
	if defaults.DBName == "" {
		defaults.DBName = defaultDBName
	}
	return defaults
}

// SaveUserConfig persists the configuration to the app config path.
func SaveUserConfig(cfg UserConfig) error {
	path, err := appConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetDataDir resolves the data directory: runtime flag, then environment,
// then the saved user config, then the platform app-data default.
func GetDataDir() (string, error) {
	if runtimeDataDir != "" {
		return runtimeDataDir, nil
	}
	if env := strings.TrimSpace(os.Getenv(envDataDir)); env != "" {
		return env, nil
	}
	cfg := LoadUserConfig()
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return appConfigDir()
}

// GetDBPath resolves the database file path. REBALANCE_DB_PATH wins;
// otherwise the configured db name inside the data directory.
func GetDBPath() (string, error) {
	if env := strings.TrimSpace(os.Getenv(envDBPath)); env != "" {
		return env, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	cfg := LoadUserConfig()
	name := cfg.DBName
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dataDir, name), nil
}
