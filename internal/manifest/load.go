package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

const ManifestFileName = "cabin.toml"

// profileTableNames lists the per-profile override tables nested under
// [profile.*]; any other key in that table belongs to the shared base.
var profileTableNames = map[string]bool{"dev": true, "release": true, "test": true}

// rawDoc is the top-level decode target. Profile is decoded generically
// since it mixes flat base keys with nested per-name tables.
type rawDoc struct {
	Package         Package           `toml:"package"`
	Dependencies    map[string]RawDep `toml:"dependencies"`
	DevDependencies map[string]RawDep `toml:"dev-dependencies"`
	Profile         map[string]any    `toml:"profile"`
	Lint            Lint              `toml:"lint"`
}

// Load parses and validates the cabin.toml at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &cabinerr.ManifestError{Msg: fmt.Sprintf("reading %s", path), Err: err}
	}

	var doc rawDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &cabinerr.ManifestError{Msg: "parsing " + path, Pos: decodePos(err), Err: err}
	}

	base, named, err := splitProfileTable(doc.Profile)
	if err != nil {
		return nil, &cabinerr.ManifestError{Msg: "[profile]", Err: err}
	}

	m := &Manifest{
		Package:            doc.Package,
		Dependencies:       doc.Dependencies,
		DevDependencies:    doc.DevDependencies,
		Profile:            base,
		Profiles:           named,
		Lint:               doc.Lint,
		Dir:                filepath.Dir(path),
		dependencyOrder:    declarationOrder(data, "dependencies"),
		devDependencyOrder: declarationOrder(data, "dev-dependencies"),
	}

	if err := validateManifest(m); err != nil {
		return nil, err
	}
	return m, nil
}

// FindAndLoad ascends from startDir until it finds cabin.toml or reaches the
// filesystem root.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, &cabinerr.ManifestError{Msg: "resolving start directory", Err: err}
	}
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, &cabinerr.ManifestError{Msg: fmt.Sprintf("%s not found in %s or any parent directory", ManifestFileName, startDir)}
		}
		dir = parent
	}
}

// validateManifest applies every rule from spec.md §3 to an already-decoded
// Manifest.
func validateManifest(m *Manifest) error {
	if m.Package.Name == "" {
		return &cabinerr.ManifestError{Msg: "[package] name is required"}
	}
	if err := ValidatePackageName(m.Package.Name); err != nil {
		return &cabinerr.ManifestError{Msg: "[package] name", Err: err}
	}
	if err := ValidateEdition(m.Package.Edition); err != nil {
		return &cabinerr.ManifestError{Msg: "[package] edition", Err: err}
	}
	if m.Package.Version == "" {
		return &cabinerr.ManifestError{Msg: "[package] version is required"}
	}
	if err := ValidateVersion(m.Package.Version); err != nil {
		return &cabinerr.ManifestError{Msg: "[package] version", Err: err}
	}

	if _, err := parseDependencies(m.Dependencies, m.dependencyOrder); err != nil {
		return err
	}
	if _, err := parseDependencies(m.DevDependencies, m.devDependencyOrder); err != nil {
		return err
	}

	if err := ValidateCpplintFilters(m.Lint.Cpplint.Filters); err != nil {
		return &cabinerr.ManifestError{Msg: "[lint.cpplint] filters", Err: err}
	}

	for _, name := range []string{"dev", "release", "test"} {
		if _, err := ResolveProfile(m, name); err != nil {
			return err
		}
	}
	return nil
}

// ParsedDependencies returns the validated dependency list, in manifest
// declaration order.
func (m *Manifest) ParsedDependencies() ([]Dependency, error) {
	return parseDependencies(m.Dependencies, m.dependencyOrder)
}

// ParsedDevDependencies returns the validated dev-dependency list, in
// manifest declaration order.
func (m *Manifest) ParsedDevDependencies() ([]Dependency, error) {
	return parseDependencies(m.DevDependencies, m.devDependencyOrder)
}

// splitProfileTable separates [profile]'s flat base keys from its nested
// dev/release/test sub-tables.
func splitProfileTable(raw map[string]any) (RawProfile, map[string]RawProfile, error) {
	named := make(map[string]RawProfile)
	baseMap := make(map[string]any)
	for k, v := range raw {
		if profileTableNames[k] {
			sub, ok := v.(map[string]any)
			if !ok {
				return RawProfile{}, nil, fmt.Errorf("[profile.%s] must be a table", k)
			}
			rp, err := decodeRawProfile(sub)
			if err != nil {
				return RawProfile{}, nil, fmt.Errorf("[profile.%s]: %w", k, err)
			}
			named[k] = rp
			continue
		}
		baseMap[k] = v
	}
	base, err := decodeRawProfile(baseMap)
	if err != nil {
		return RawProfile{}, nil, err
	}
	return base, named, nil
}

// decodeRawProfile re-marshals a generic map into TOML and decodes it into a
// RawProfile, reusing the library's own type coercion instead of a hand
// rolled field-by-field switch.
func decodeRawProfile(m map[string]any) (RawProfile, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return RawProfile{}, err
	}
	var rp RawProfile
	if err := toml.Unmarshal(data, &rp); err != nil {
		return RawProfile{}, err
	}
	return rp, nil
}

// declarationOrder recovers the order dependency names appeared in the
// source text's [table] (e.g. "dependencies"), since go-toml/v2 decodes the
// table into a map and Go's map iteration order carries no relation to
// insertion order. This is a lightweight line scan over the raw bytes, not a
// second full TOML parse: it tracks the current top-level table header and,
// while inside [table], records the bare key of every "key = value" line
// (spec.md's dependency tables are always written as inline tables under a
// single [dependencies]/[dev-dependencies] header, e.g. `fmt = { git = ...
// }`, never as per-dependency [dependencies.fmt] sub-tables, so that's the
// only shape this needs to recognize). A manifest that mixes in the
// sub-table form still loads and resolves correctly; any name this scan
// doesn't see simply sorts after the names it did see, in
// parseDependencies.
func declarationOrder(data []byte, table string) []string {
	want := "[" + table + "]"
	var names []string
	inTable := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inTable = line == want
			continue
		}
		if !inTable {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		key = strings.Trim(key, `"'`)
		if key != "" {
			names = append(names, key)
		}
	}
	return names
}

// decodePos extracts a "line:col" string from a go-toml decode error, if the
// error carries position information.
func decodePos(err error) string {
	var decodeErr *toml.DecodeError
	if ok := asDecodeError(err, &decodeErr); ok {
		row, col := decodeErr.Position()
		return fmt.Sprintf("%d:%d", row, col)
	}
	return ""
}

func asDecodeError(err error, target **toml.DecodeError) bool {
	de, ok := err.(*toml.DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
