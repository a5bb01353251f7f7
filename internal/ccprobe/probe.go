package ccprobe

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/env"
)

// Compiler describes the resolved toolchain: the cxx driver and archiver
// executables to invoke.
type Compiler struct {
	Cxx      string
	Archiver string
}

// userConfig is the optional [toolchain] override file (SPEC_FULL.md §4.3A).
type userConfig struct {
	Toolchain struct {
		Cxx string `toml:"cxx"`
		Ar  string `toml:"ar"`
	} `toml:"toolchain"`
}

func loadUserConfig() userConfig {
	var cfg userConfig
	path, err := env.ConfigPath()
	if err != nil {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = toml.Unmarshal(data, &cfg)
	return cfg
}

// Probe selects the C++ compiler and archiver. lto indicates whether the
// active profile has LTO enabled, which triggers the llvm-ar/gcc-ar sibling
// search for the archiver.
func Probe(lto bool) (Compiler, error) {
	cfg := loadUserConfig()

	cxx := firstNonEmpty(os.Getenv("CXX"), cfg.Toolchain.Cxx)
	if cxx == "" {
		var err error
		cxx, err = findOnPath("c++", "g++", "clang++")
		if err != nil {
			return Compiler{}, &cabinerr.ToolchainError{Msg: "no usable C++ compiler found on PATH", Err: err}
		}
	}

	archiver := firstNonEmpty(os.Getenv("CABIN_AR"), os.Getenv("AR"), cfg.Toolchain.Ar)
	if archiver == "" {
		archiver = "ar"
		if lto {
			if ar := findLTOArchiver(cxx); ar != "" {
				archiver = ar
			}
		}
	}

	return Compiler{Cxx: cxx, Archiver: archiver}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func findOnPath(candidates ...string) (string, error) {
	var firstErr error
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

// findLTOArchiver derives a sibling llvm-ar/gcc-ar from the compiler's base
// name by suffix replacement (e.g. "clang++-19" -> "llvm-ar-19",
// "x86_64-w64-mingw32-g++-13" -> "x86_64-w64-mingw32-gcc-ar-13"), falling
// back to a bare llvm-ar/gcc-ar on PATH. LLVM_AR/GCC_AR env vars take
// priority over both.
func findLTOArchiver(cxx string) string {
	if ar := os.Getenv("LLVM_AR"); ar != "" {
		return ar
	}
	if ar := os.Getenv("GCC_AR"); ar != "" {
		return ar
	}

	base := filepath.Base(cxx)
	isClang := strings.Contains(base, "clang++")
	isGCC := strings.Contains(base, "g++")

	var derived string
	switch {
	case isClang:
		derived = strings.Replace(base, "clang++", "llvm-ar", 1)
	case isGCC:
		derived = strings.Replace(base, "g++", "gcc-ar", 1)
	default:
		return ""
	}
	if path, err := exec.LookPath(derived); err == nil {
		return path
	}

	fallback := "llvm-ar"
	if isGCC && !isClang {
		fallback = "gcc-ar"
	}
	if path, err := exec.LookPath(fallback); err == nil {
		return path
	}
	return ""
}
