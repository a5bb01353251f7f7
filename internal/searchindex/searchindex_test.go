package searchindex

import "testing"

func TestSearchMatchesNameSubstring(t *testing.T) {
	matches := Search("json")
	if len(matches) == 0 {
		t.Fatal("Search(json) returned no matches")
	}
	found := false
	for _, m := range matches {
		if m.Name == "nlohmann-json" {
			found = true
		}
	}
	if !found {
		t.Errorf("Search(json) = %v, want nlohmann-json among matches", matches)
	}
}

func TestSearchMatchesDescription(t *testing.T) {
	matches := Search("compression")
	found := false
	for _, m := range matches {
		if m.Name == "zlib" {
			found = true
		}
	}
	if !found {
		t.Errorf("Search(compression) = %v, want zlib among matches", matches)
	}
}

func TestSearchEmptyQueryReturnsFullIndex(t *testing.T) {
	all := Search("")
	if len(all) < 10 {
		t.Errorf("Search(\"\") returned %d entries, want the full index", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Fatalf("Search(\"\") not sorted by name: %v", all)
		}
	}
}

func TestLookupExactName(t *testing.T) {
	e, ok := Lookup("fmt")
	if !ok {
		t.Fatal("Lookup(fmt) not found")
	}
	if e.URL != "https://github.com/fmtlib/fmt" {
		t.Errorf("Lookup(fmt).URL = %q", e.URL)
	}
}

func TestLookupMissing(t *testing.T) {
	if _, ok := Lookup("not-a-real-library"); ok {
		t.Error("Lookup(not-a-real-library) found = true, want false")
	}
}
