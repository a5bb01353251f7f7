// Package env resolves cabin's on-disk cache and configuration locations.
package env

import (
	"os"
	"path/filepath"
)

// CacheDir returns the root directory cabin uses for cloned git dependencies
// and other downloaded state, creating it if necessary.
func CacheDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(userCacheDir, "cabin")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// GitCacheDir returns the directory a git dependency is cloned into, keyed
// by url+target so repeated resolutions reuse the same checkout.
func GitCacheDir(key string) (string, error) {
	root, err := CacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "git", key)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns the path to the optional user-level toolchain override
// file. Its absence is not an error; callers should os.Stat before reading.
func ConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cabin", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cabin", "config.toml"), nil
}
