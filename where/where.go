// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/mpfront/mpfront/constant"
	"github.com/mpfront/mpfront/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "MPFRONT_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the primary configuration directory.
// MPFRONT_CONFIG_PATH takes precedence over the platform default.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the directory used for diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Info resolves the cached backend capability report.
func Info() string {
	return filepath.Join(Cache(), "info.json")
}

// Temp resolves the base directory under which peer directories are created.
func Temp() string {
	return os.TempDir()
}

// Peer resolves the directory holding the lock file and sockets shared by every
// instance of appID within one user session. The directory is not created here.
func Peer(base, appID, session string) string {
	if base == "" {
		base = Temp()
	}
	return filepath.Join(base, appID+"-"+session)
}
