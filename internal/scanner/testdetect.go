package scanner

import (
	"bufio"
	"os"
	"strings"

	"github.com/cabinpm/cabin/internal/cabinerr"
)

// Preprocessor runs the compiler's preprocess-only step over a source file,
// optionally defining CABIN_TEST, and returns its output. Implemented by
// internal/ccprobe's Commands in production; substitutable in tests.
type Preprocessor interface {
	Preprocess(sourcePath string, defineCabinTest bool) (string, error)
}

// ContainsTestCode reports whether sourcePath carries CABIN_TEST-gated unit
// test code. A cheap textual pre-filter (does the file mention CABIN_TEST at
// all?) avoids invoking the preprocessor twice for the common case where it
// doesn't; when it does, the file is preprocessed with and without
// -DCABIN_TEST and the outputs compared.
func ContainsTestCode(pre Preprocessor, sourcePath string) (bool, error) {
	mentions, err := mentionsCabinTest(sourcePath)
	if err != nil {
		return false, err
	}
	if !mentions {
		return false, nil
	}

	plain, err := pre.Preprocess(sourcePath, false)
	if err != nil {
		return false, &cabinerr.ScanError{Msg: "preprocessing " + sourcePath, Err: err}
	}
	withTest, err := pre.Preprocess(sourcePath, true)
	if err != nil {
		return false, &cabinerr.ScanError{Msg: "preprocessing " + sourcePath + " with -DCABIN_TEST", Err: err}
	}
	return plain != withTest, nil
}

func mentionsCabinTest(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, &cabinerr.ScanError{Msg: "reading " + path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "CABIN_TEST") {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, &cabinerr.ScanError{Msg: "reading " + path, Err: err}
	}
	return false, nil
}
