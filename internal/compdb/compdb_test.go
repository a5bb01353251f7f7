package compdb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func rawEntry(t *testing.T, directory, file string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"directory": directory,
		"file":      file,
		"command":   "g++ -c " + file,
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestMergeFragmentsDropsDuplicatesAndSorts(t *testing.T) {
	a := []json.RawMessage{rawEntry(t, "/proj/dev", "src/b.cc"), rawEntry(t, "/proj/dev", "src/a.cc")}
	b := []json.RawMessage{rawEntry(t, "/proj/dev", "src/a.cc"), rawEntry(t, "/proj/test", "src/a.cc")}

	merged := mergeFragments([][]json.RawMessage{a, b})
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3 (duplicate dev/src/a.cc entry dropped)", len(merged))
	}

	var fields []struct {
		Directory string `json:"directory"`
		File      string `json:"file"`
	}
	for _, m := range merged {
		var f struct {
			Directory string `json:"directory"`
			File      string `json:"file"`
		}
		if err := json.Unmarshal(m, &f); err != nil {
			t.Fatal(err)
		}
		fields = append(fields, f)
	}
	want := [][2]string{{"/proj/dev", "src/a.cc"}, {"/proj/dev", "src/b.cc"}, {"/proj/test", "src/a.cc"}}
	for i, w := range want {
		if fields[i].Directory != w[0] || fields[i].File != w[1] {
			t.Errorf("entry %d = (%s,%s), want (%s,%s)", i, fields[i].Directory, fields[i].File, w[0], w[1])
		}
	}
}

func TestMergeFragmentsSkipsMalformedEntries(t *testing.T) {
	malformed := json.RawMessage(`{"file":"only-file.cc"}`)
	good := rawEntry(t, "/proj/dev", "src/a.cc")
	merged := mergeFragments([][]json.RawMessage{{malformed, good}})
	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1 (malformed entry without directory dropped)", len(merged))
	}
}

func TestGenerateMergesSiblingProfileDirs(t *testing.T) {
	root := t.TempDir()
	devDir := filepath.Join(root, "dev")
	testDir := filepath.Join(root, "test")
	for _, d := range []string{devDir, testDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(d, "build.ninja"), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	origFetch := fetchFragment
	defer func() { fetchFragment = origFetch }()
	fetchFragment = func(ctx context.Context, dir string) ([]json.RawMessage, error) {
		switch dir {
		case devDir:
			return []json.RawMessage{rawEntry(t, devDir, "src/main.cc")}, nil
		case testDir:
			return []json.RawMessage{rawEntry(t, testDir, "tests/it_test.cc")}, nil
		}
		return nil, nil
	}

	if err := Generate(context.Background(), devDir, 2); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "compile_commands.json"))
	if err != nil {
		t.Fatal(err)
	}
	var combined []json.RawMessage
	if err := json.Unmarshal(data, &combined); err != nil {
		t.Fatal(err)
	}
	if len(combined) != 2 {
		t.Fatalf("len(combined) = %d, want 2", len(combined))
	}
}

func TestGenerateWithZeroJobsRunsUnlimited(t *testing.T) {
	root := t.TempDir()
	devDir := filepath.Join(root, "dev")
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(devDir, "build.ninja"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	origFetch := fetchFragment
	defer func() { fetchFragment = origFetch }()
	fetchFragment = func(ctx context.Context, dir string) ([]json.RawMessage, error) {
		return []json.RawMessage{rawEntry(t, devDir, "src/main.cc")}, nil
	}

	if err := Generate(context.Background(), devDir, 0); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}
