// Package config provides configuration management for sk.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "sk"

// Paths locates the files sk keeps between runs: the YAML config, the
// query history database and the fallback debug log.
type Paths struct {
	ConfigDir string // config.yaml
	DataDir   string // history.db
	CacheDir  string // sk.log
}

// DefaultPaths resolves the directories from the XDG base directory
// variables, or from %APPDATA% and %LOCALAPPDATA% on Windows.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		roaming := baseDir("APPDATA", home, "AppData", "Roaming")
		local := baseDir("LOCALAPPDATA", home, "AppData", "Local")
		return &Paths{
			ConfigDir: filepath.Join(roaming, appName),
			DataDir:   filepath.Join(local, appName),
			CacheDir:  filepath.Join(local, appName, "cache"),
		}
	}

	return &Paths{
		ConfigDir: filepath.Join(baseDir("XDG_CONFIG_HOME", home, ".config"), appName),
		DataDir:   filepath.Join(baseDir("XDG_DATA_HOME", home, ".local", "share"), appName),
		CacheDir:  filepath.Join(baseDir("XDG_CACHE_HOME", home, ".cache"), appName),
	}
}

// baseDir returns $env when it holds an absolute path and home joined with
// fallback otherwise. Relative values are ignored, as XDG requires.
func baseDir(env, home string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" && filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// HistoryFile returns the path to the query history database.
func (p *Paths) HistoryFile() string {
	return filepath.Join(p.DataDir, "history.db")
}

// LogFile returns the path used for debug logs when no log file is
// configured.
func (p *Paths) LogFile() string {
	return filepath.Join(p.CacheDir, appName+".log")
}

// EnsureDirectories creates the config, data and cache directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConfigDir, p.DataDir, p.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}
