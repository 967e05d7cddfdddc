package transform_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	name    string
	content string
}

func zipBytes(t *testing.T, entries ...entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	wrt := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := wrt.Create(e.name)
		require.NoError(t, err)
		_, err = f.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, wrt.Close())

	return buf.Bytes()
}

func writeZip(t *testing.T, path string, entries ...entry) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, zipBytes(t, entries...), 0o600))
}

// fakeDownloader serves archives from memory.
type fakeDownloader struct {
	archives map[string][]byte
	err      error
}

func (d *fakeDownloader) Download(_ context.Context, name, dst string) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}

	content := d.archives[name]

	return int64(len(content)), os.WriteFile(dst, content, 0o600)
}

// fakeConverter records the model configs it converts.
type fakeConverter struct {
	mu     sync.Mutex
	calls  []string
	output []byte
	err    error
}

func (c *fakeConverter) Convert(_ context.Context, modelConfig string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, modelConfig)

	return c.output, c.err
}
