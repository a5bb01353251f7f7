package manifest

import (
	"fmt"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

// InheritMode controls how the "test" profile folds over "dev".
type InheritMode string

const (
	InheritAppend    InheritMode = "append"
	InheritOverwrite InheritMode = "overwrite"
)

// Profile is the fully resolved, defaulted set of toolchain options for one
// of dev/release/test.
type Profile struct {
	Name     string
	CxxFlags []string
	LdFlags  []string
	Lto      bool
	Debug    bool
	OptLevel int
}

var profileDefaults = map[string]RawProfile{
	"dev":     {Debug: boolPtr(true), OptLevel: intPtr(0)},
	"release": {Debug: boolPtr(false), OptLevel: intPtr(3)},
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

// ResolveProfile computes the final Profile for name ("dev", "release", or
// "test") from the manifest's [profile] base table, its per-name override
// table, and (for "test" only) inheritance from "dev".
func ResolveProfile(m *Manifest, name string) (Profile, error) {
	if name != "dev" && name != "release" && name != "test" {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}

	base := m.Profile
	override, hasOverride := m.Profiles[name]

	var merged RawProfile
	if def, ok := profileDefaults[name]; ok {
		merged = mergeRawProfile(def, base)
	} else {
		merged = base
	}

	if name == "test" {
		devOverride := m.Profiles["dev"]
		devMerged := mergeRawProfile(mergeRawProfile(profileDefaults["dev"], base), devOverride)
		mode := InheritAppend
		if hasOverride && override.InheritMode != "" {
			switch InheritMode(override.InheritMode) {
			case InheritAppend, InheritOverwrite:
				mode = InheritMode(override.InheritMode)
			default:
				return Profile{}, &cabinerr.ManifestError{Msg: fmt.Sprintf("invalid inherit-mode %q", override.InheritMode)}
			}
		}
		merged = inheritProfile(devMerged, override, mode)
	} else if hasOverride {
		merged = mergeRawProfile(merged, override)
	}

	p := Profile{
		Name:     name,
		CxxFlags: merged.CxxFlags,
		LdFlags:  merged.LdFlags,
	}
	if merged.Lto != nil {
		p.Lto = *merged.Lto
	}
	if merged.Debug != nil {
		p.Debug = *merged.Debug
	}
	if merged.OptLevel != nil {
		p.OptLevel = *merged.OptLevel
	} else {
		p.OptLevel = 0
	}

	for _, f := range p.CxxFlags {
		if err := ValidateFlag(f); err != nil {
			return Profile{}, &cabinerr.ManifestError{Msg: fmt.Sprintf("[profile.%s] cxxflags: %v", name, err)}
		}
	}
	for _, f := range p.LdFlags {
		if err := ValidateFlag(f); err != nil {
			return Profile{}, &cabinerr.ManifestError{Msg: fmt.Sprintf("[profile.%s] ldflags: %v", name, err)}
		}
	}
	if err := ValidateOptLevel(p.OptLevel); err != nil {
		return Profile{}, &cabinerr.ManifestError{Msg: fmt.Sprintf("[profile.%s] %v", name, err)}
	}

	return p, nil
}

// mergeRawProfile fills fields missing in base with values from override,
// with override's explicit values taking priority (standard inheritance:
// "fills missing fields").
func mergeRawProfile(base, override RawProfile) RawProfile {
	out := base
	if override.CxxFlags != nil {
		out.CxxFlags = override.CxxFlags
	}
	if override.LdFlags != nil {
		out.LdFlags = override.LdFlags
	}
	if override.Lto != nil {
		out.Lto = override.Lto
	}
	if override.Debug != nil {
		out.Debug = override.Debug
	}
	if override.OptLevel != nil {
		out.OptLevel = override.OptLevel
	}
	if override.InheritMode != "" {
		out.InheritMode = override.InheritMode
	}
	return out
}

// inheritProfile applies test's inheritance from dev: append concatenates
// flag lists, overwrite replaces them outright; scalar fields always use
// test's own value when set, else dev's.
func inheritProfile(dev, test RawProfile, mode InheritMode) RawProfile {
	out := dev
	switch mode {
	case InheritOverwrite:
		if test.CxxFlags != nil {
			out.CxxFlags = test.CxxFlags
		}
		if test.LdFlags != nil {
			out.LdFlags = test.LdFlags
		}
	default: // append
		if test.CxxFlags != nil {
			out.CxxFlags = append(append([]string{}, dev.CxxFlags...), test.CxxFlags...)
		}
		if test.LdFlags != nil {
			out.LdFlags = append(append([]string{}, dev.LdFlags...), test.LdFlags...)
		}
	}
	if test.Lto != nil {
		out.Lto = test.Lto
	}
	if test.Debug != nil {
		out.Debug = test.Debug
	}
	if test.OptLevel != nil {
		out.OptLevel = test.OptLevel
	}
	return out
}
