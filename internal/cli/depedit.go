package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cabinpm/cabin/internal/cabinerr"
	"github.com/cabinpm/cabin/internal/manifest"
)

// loadManifestDoc reads and decodes the nearest cabin.toml into a generic
// document for in-place dependency edits (add/remove), the same
// read-modify-marshal round trip decodeRawProfile already uses for the
// [profile.*] sub-tables, applied here to the whole file.
func loadManifestDoc() (path string, doc map[string]any, err error) {
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		return "", nil, err
	}
	path = filepath.Join(mf.Dir, manifest.ManifestFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, &cabinerr.IOError{Msg: "reading " + path, Err: err}
	}
	doc = map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", nil, &cabinerr.ManifestError{Msg: "parsing " + path, Err: err}
	}
	return path, doc, nil
}

func writeManifestDoc(path string, doc map[string]any) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return &cabinerr.ManifestError{Msg: "re-encoding " + path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &cabinerr.IOError{Msg: "writing " + path, Err: err}
	}
	return nil
}

func dependenciesTable(doc map[string]any) map[string]any {
	deps, ok := doc["dependencies"].(map[string]any)
	if !ok {
		deps = map[string]any{}
		doc["dependencies"] = deps
	}
	return deps
}

// parseAddSpec splits a `cabin add` argument into a name and optional
// version constraint (`name@version`), the shorthand this command supports
// for system (pkg-config) dependencies; original_source has no Add.cc to
// ground this against, so the `name@version` shorthand is this command's
// own design, deliberately symmetric with Remove.cc's plain-name args.
func parseAddSpec(spec string) (name, version string) {
	name, version, found := strings.Cut(spec, "@")
	if !found {
		return spec, ""
	}
	return name, version
}
