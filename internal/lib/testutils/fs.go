package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/lib/fsext"
)

// MakeMemMapFs creates a new in-memory filesystem with the given files. The
// keys of withFiles are the paths of the files to create, the values their
// contents; files are created with 644 mode.
func MakeMemMapFs(t testing.TB, withFiles map[string][]byte) fsext.Fs {
	fs := fsext.NewMemMapFs()

	for path, data := range withFiles {
		require.NoError(t, fsext.WriteFile(fs, path, data, 0o644))
	}

	return fs
}
