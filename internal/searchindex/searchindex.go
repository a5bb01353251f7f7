// Package searchindex is cabin's "search" subcommand backend: a small
// curated table of well-known C++ libraries mapped to their canonical git
// URL, embedded in the binary at build time. There is no live registry
// service behind it — this is the deliberate "no package registry"
// boundary (spec's Non-goal), given real behavior instead of a stub.
package searchindex

import (
	_ "embed"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

//go:embed index.json
var indexJSON []byte

// Entry is one searchable library.
type Entry struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

var (
	once    sync.Once
	entries []Entry
)

func loadEntries() []Entry {
	once.Do(func() {
		if err := json.Unmarshal(indexJSON, &entries); err != nil {
			// The embedded table is fixed at build time; a decode failure
			// here means the JSON itself is malformed, not a runtime
			// condition callers can recover from.
			panic("searchindex: malformed embedded index: " + err.Error())
		}
	})
	return entries
}

// Search returns every entry whose name or description contains query
// (case-insensitive), sorted by name. An empty query returns the full
// index, also sorted by name.
func Search(query string) []Entry {
	all := loadEntries()
	q := strings.ToLower(query)

	var matches []Entry
	for _, e := range all {
		if q == "" || strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return matches
}

// Lookup returns the entry with the exact name, if present.
func Lookup(name string) (Entry, bool) {
	for _, e := range loadEntries() {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
