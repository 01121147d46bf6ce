package compiler_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/internal/filetest"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
)

var updateErrorTests = flag.Bool("test.update-compiler-error-tests", false, "update testdata/errors/*.gs.err golden files")

// TestCompileErrorsGolden diffs each invalid program in testdata/errors
// against its golden .gs.err file, the same SourceFiles/DiffErrors harness
// the rest of the module's golden-file tests use.
func TestCompileErrorsGolden(t *testing.T) {
	const dir = "testdata/errors"
	for _, fi := range filetest.SourceFiles(t, dir, ".gs") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			heap := gc.New(gc.Options{})
			_, cerr := compiler.Compile(heap, string(src))
			require.Error(t, cerr)

			filetest.DiffErrors(t, fi, cerr.Error(), dir, updateErrorTests)
		})
	}
}
