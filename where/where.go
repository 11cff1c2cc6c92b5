// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/vodsync/vodsync/constant"
	"github.com/vodsync/vodsync/filesystem"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "VODSYNC_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory, honoring VODSYNC_CONFIG_PATH.
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

// Logs resolves the diagnostic log directory.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// EventLogs resolves the directory holding downloaded event logs, one file per source URL.
func EventLogs() string {
	return ensureDir(filepath.Join(Cache(), "eventlogs"))
}

// Matches resolves the track match cache file. It lives under Config since it is never invalidated.
func Matches() string {
	return filepath.Join(Config(), "matches.json")
}

// NowPlaying resolves the per-session now-playing snapshot file.
func NowPlaying() string {
	return filepath.Join(Cache(), "nowplaying.json")
}

// Temp resolves a volatile directory for player sockets.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}
