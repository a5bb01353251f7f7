// Package manifest loads and validates cabin.toml.
package manifest

// Edition is a supported C++ standard edition.
type Edition string

const (
	Edition98 Edition = "98"
	Edition03 Edition = "03"
	Edition11 Edition = "11"
	Edition14 Edition = "14"
	Edition17 Edition = "17"
	Edition20 Edition = "20"
	Edition23 Edition = "23"
	Edition26 Edition = "26"
)

var validEditions = map[Edition]bool{
	Edition98: true, Edition03: true, Edition11: true, Edition14: true,
	Edition17: true, Edition20: true, Edition23: true, Edition26: true,
}

// Package is the package identity described by a manifest's [package] table.
type Package struct {
	Name    string   `toml:"name"`
	Edition Edition  `toml:"edition"`
	Version string   `toml:"version"`
	Authors []string `toml:"authors,omitempty"`
}

// Lint holds the optional [lint.cpplint] table.
type Lint struct {
	Cpplint CpplintLint `toml:"cpplint"`
}

// CpplintLint is cpplint's filter list, e.g. ["+whitespace", "-legal/copyright"].
type CpplintLint struct {
	Filters []string `toml:"filters,omitempty"`
}

// Manifest is the fully parsed and validated contents of cabin.toml.
type Manifest struct {
	Package         Package               `toml:"package"`
	Dependencies    map[string]RawDep     `toml:"dependencies,omitempty"`
	DevDependencies map[string]RawDep     `toml:"dev-dependencies,omitempty"`
	Profile         RawProfile            `toml:"profile"`
	Profiles        map[string]RawProfile `toml:"-"`
	Lint            Lint                  `toml:"lint,omitempty"`

	// Dir is the directory containing this manifest's cabin.toml. Not part
	// of the TOML surface; set by Load.
	Dir string `toml:"-"`

	// dependencyOrder and devDependencyOrder record the order names appeared
	// in the source text's [dependencies]/[dev-dependencies] tables, since
	// go-toml/v2 decodes both into a map and Go map iteration order carries
	// no relation to insertion order. Not part of the TOML surface; set by
	// Load from the raw bytes. A name absent from these (should not happen
	// for well-formed input scanned by declarationOrder) sorts after every
	// name that is present.
	dependencyOrder    []string
	devDependencyOrder []string
}

// RawDep is the as-parsed shape of a single [dependencies.*] entry, before
// it is resolved into exactly one of the three Dependency variants.
type RawDep struct {
	Git    string `toml:"git,omitempty"`
	Rev    string `toml:"rev,omitempty"`
	Tag    string `toml:"tag,omitempty"`
	Branch string `toml:"branch,omitempty"`

	Path string `toml:"path,omitempty"`

	Version string `toml:"version,omitempty"`
	System  bool   `toml:"system,omitempty"`
}

// RawProfile is the as-parsed shape of a [profile] or [profile.*] table.
// Pointer fields distinguish "not set" (nil, inherit) from "set to zero value".
type RawProfile struct {
	CxxFlags    []string `toml:"cxxflags,omitempty"`
	LdFlags     []string `toml:"ldflags,omitempty"`
	Lto         *bool    `toml:"lto,omitempty"`
	Debug       *bool    `toml:"debug,omitempty"`
	OptLevel    *int     `toml:"opt-level,omitempty"`
	InheritMode string   `toml:"inherit-mode,omitempty"`
}
