package manifest

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

// cppKeywords is the set of reserved words a package name may not equal.
var cppKeywords = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`
		alignas alignof and and_eq asm atomic_cancel atomic_commit atomic_noexcept
		auto bitand bitor bool break case catch char char8_t char16_t char32_t
		class compl concept const consteval constexpr constinit const_cast
		continue co_await co_return co_yield decltype default delete do double
		dynamic_cast else enum explicit export extern false float for friend
		goto if inline int long mutable namespace new noexcept not not_eq
		nullptr operator or or_eq private protected public register
		reinterpret_cast requires return short signed sizeof static
		static_assert static_cast struct switch synchronized template this
		thread_local throw true try typedef typeid typename union unsigned
		using virtual void volatile wchar_t while xor xor_eq`) {
		cppKeywords[kw] = true
	}
}

// ValidatePackageName enforces spec.md §3's package-name rules.
func ValidatePackageName(name string) error {
	if len(name) < 2 {
		return fmt.Errorf("package name %q must be at least 2 characters", name)
	}
	if !unicode.IsLetter(rune(name[0])) || name[0] > unicode.MaxASCII {
		return fmt.Errorf("package name %q must start with a letter", name)
	}
	last := rune(name[len(name)-1])
	if !isAlphanumeric(last) {
		return fmt.Errorf("package name %q must end with an alphanumeric character", name)
	}
	for _, r := range name {
		if !isAlphanumeric(r) && r != '_' && r != '-' {
			return fmt.Errorf("package name %q contains invalid character %q", name, r)
		}
		if r >= 'A' && r <= 'Z' {
			return fmt.Errorf("package name %q must be lowercase", name)
		}
	}
	if cppKeywords[name] {
		return fmt.Errorf("package name %q is a reserved C++ keyword", name)
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z')
}

// ValidateEdition checks that edition is one of the supported values.
func ValidateEdition(edition Edition) error {
	if !validEditions[edition] {
		return fmt.Errorf("unsupported edition %q", edition)
	}
	return nil
}

// ValidateVersion checks that version is valid semver.
func ValidateVersion(version string) error {
	canon := version
	if !strings.HasPrefix(canon, "v") {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		return fmt.Errorf("invalid semver version %q", version)
	}
	return nil
}

// ValidateOptLevel checks that opt-level is in [0,3].
func ValidateOptLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("opt-level %d out of range [0,3]", level)
	}
	return nil
}

// ValidateFlag checks a single cxxflags/ldflags entry against spec.md §4.1:
// must start with '-', contain only [A-Za-z0-9] and {-,_,=,+,:,.,,}, and
// contain at most one space (admitting patterns like "-framework Metal").
func ValidateFlag(flag string) error {
	if !strings.HasPrefix(flag, "-") {
		return fmt.Errorf("flag %q must start with '-'", flag)
	}
	spaces := 0
	for _, r := range flag {
		switch {
		case isAlphanumeric(r):
		case strings.ContainsRune("-_=+:.,", r):
		case r == ' ':
			spaces++
		default:
			return fmt.Errorf("flag %q contains invalid character %q", flag, r)
		}
	}
	if spaces > 1 {
		return fmt.Errorf("flag %q contains more than one space", flag)
	}
	return nil
}

// ValidateDependencyName enforces spec.md §3's stricter dependency-name
// alphabet: alphanumerics plus -_/.+, no consecutive non-alphanumerics
// (except repeated '+'), at most one '/', '+' only in consecutive pairs,
// '.' only wrapped by digits.
func ValidateDependencyName(name string) error {
	if name == "" {
		return fmt.Errorf("dependency name must not be empty")
	}
	slashes := 0
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case isAlphanumeric(r):
		case strings.ContainsRune("-_/.+", r):
		default:
			return fmt.Errorf("dependency name %q contains invalid character %q", name, r)
		}
		if r == '/' {
			slashes++
			if slashes > 1 {
				return fmt.Errorf("dependency name %q has more than one '/'", name)
			}
		}
		if r == '.' {
			if i == 0 || i == len(runes)-1 || !isDigit(runes[i-1]) || !isDigit(runes[i+1]) {
				return fmt.Errorf("dependency name %q has a '.' not wrapped by digits", name)
			}
		}
		if !isAlphanumeric(r) && r != '+' && i > 0 {
			prev := runes[i-1]
			if !isAlphanumeric(prev) {
				return fmt.Errorf("dependency name %q has consecutive non-alphanumeric characters", name)
			}
		}
	}
	if err := validatePlusRuns(name, runes); err != nil {
		return err
	}
	return nil
}

// validatePlusRuns enforces that every run of consecutive '+' characters has
// length exactly 2 ("+ only in pairs and only consecutive").
func validatePlusRuns(name string, runes []rune) error {
	runStart := -1
	flush := func(end int) error {
		if runStart < 0 {
			return nil
		}
		if end-runStart != 2 {
			return fmt.Errorf("dependency name %q has a '+' run that is not a pair", name)
		}
		return nil
	}
	for i, r := range runes {
		if r == '+' {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if err := flush(i); err != nil {
			return err
		}
		runStart = -1
	}
	return flush(len(runes))
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// ValidateCpplintFilters checks each filter token starts with + or - and is
// non-empty beyond that prefix.
func ValidateCpplintFilters(filters []string) error {
	for _, f := range filters {
		if len(f) < 2 || (f[0] != '+' && f[0] != '-') {
			return fmt.Errorf("cpplint filter %q must start with '+' or '-' and name a check", f)
		}
	}
	return nil
}

// wrapManifestErr wraps a validation error in the stable ManifestError kind.
func wrapManifestErr(msg string, err error) error {
	return &cabinerr.ManifestError{Msg: msg, Err: err}
}
