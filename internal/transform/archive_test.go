package transform_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/fuel-migrate/internal/transform"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	archive := filepath.Join(tmp, "box.zip")
	writeZip(t, archive,
		entry{name: "model.config", content: "<model/>"},
		entry{name: "meshes/"},
		entry{name: "meshes/box.dae", content: "mesh"},
	)

	dir := filepath.Join(tmp, "box")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.config"), []byte("stale content"), 0o644))

	n, err := transform.Extract(archive, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	content, err := os.ReadFile(filepath.Join(dir, "model.config"))
	require.NoError(t, err)
	assert.Equal(t, "<model/>", string(content))

	content, err = os.ReadFile(filepath.Join(dir, "meshes", "box.dae"))
	require.NoError(t, err)
	assert.Equal(t, "mesh", string(content))
}

func TestExtractUnsafeEntry(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"parent":        "../evil.txt",
		"nested parent": "meshes/../../evil.txt",
		"absolute":      "/tmp/evil.txt",
	}

	for name, entryName := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tmp := t.TempDir()
			archive := filepath.Join(tmp, "box.zip")
			writeZip(t, archive, entry{name: entryName, content: "evil"})

			_, err := transform.Extract(archive, filepath.Join(tmp, "box"))
			assert.ErrorIs(t, err, transform.ErrUnsafePath)
			assert.NoFileExists(t, filepath.Join(tmp, "evil.txt"))
		})
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	archive := filepath.Join(tmp, "box.zip")
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0o600))

	_, err := transform.Extract(archive, filepath.Join(tmp, "box"))
	assert.ErrorIs(t, err, transform.ErrArchive)
}
