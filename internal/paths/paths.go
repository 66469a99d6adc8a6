// Package paths resolves the configuration and data directories of the
// storefront CLI and the files it keeps in them.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName is the directory name used under platform locations.
const appName = "storefront"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else is configured.
const DefaultDataDirName = ".storefront-db"

// Files kept in the configuration directory.
const (
	ConfigFileName  = "config.yaml"
	CatalogFileName = "catalog.json"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "STOREFRONT_CONFIG_DIR"
	EnvDataDir   = "STOREFRONT_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// platformPath returns <base>/storefront, where base is $xdgVar or
// ~/<fallback...> on Linux and os.UserConfigDir elsewhere.
func platformPath(xdgVar string, fallback ...string) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/storefront (fallback ~/.config/storefront)
// macOS:   ~/Library/Application Support/storefront
// Windows: %APPDATA%/storefront
func DefaultConfigDir() (string, error) {
	return platformPath("XDG_CONFIG_HOME", ".config")
}

// PlatformDataDir returns the platform-specific data directory. It is
// offered by init as an alternative to the CWD-relative default.
//
// Linux:   $XDG_DATA_HOME/storefront (fallback ~/.local/share/storefront)
// macOS and Windows: same as the config dir.
func PlatformDataDir() (string, error) {
	return platformPath("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > STOREFRONT_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config value > STOREFRONT_DATA_DIR > $(CWD)/.storefront-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the path of config.yaml in configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// CatalogFile returns the catalog path: configured if set, relative paths
// taken from configDir, and catalog.json in configDir otherwise.
func CatalogFile(configDir, configured string) string {
	switch {
	case configured == "":
		return filepath.Join(configDir, CatalogFileName)
	case filepath.IsAbs(configured):
		return configured
	default:
		return filepath.Join(configDir, configured)
	}
}
