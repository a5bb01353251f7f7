package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir() returned error: %v", err)
	}
	if dir == "" {
		t.Fatal("CacheDir() returned empty path")
	}

	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		t.Fatalf("os.UserCacheDir() returned error: %v", err)
	}
	want := filepath.Join(userCacheDir, "cabin")
	if dir != want {
		t.Errorf("CacheDir() = %q, want %q", dir, want)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("CacheDir() created a file instead of a directory")
	}
}

func TestCacheDirIdempotent(t *testing.T) {
	dir1, err := CacheDir()
	if err != nil {
		t.Fatalf("first CacheDir() call failed: %v", err)
	}
	dir2, err := CacheDir()
	if err != nil {
		t.Fatalf("second CacheDir() call failed: %v", err)
	}
	if dir1 != dir2 {
		t.Errorf("CacheDir() not idempotent: %q != %q", dir1, dir2)
	}
}

func TestGitCacheDir(t *testing.T) {
	dir, err := GitCacheDir("github.com-foo-bar#v1.0.0")
	if err != nil {
		t.Fatalf("GitCacheDir() returned error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("git cache directory not accessible: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("respects XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
		path, err := ConfigPath()
		if err != nil {
			t.Fatalf("ConfigPath() returned error: %v", err)
		}
		want := filepath.Join("/tmp/xdgtest", "cabin", "config.toml")
		if path != want {
			t.Errorf("ConfigPath() = %q, want %q", path, want)
		}
	})
}
