package cli_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/fuel-migrate/internal/cli"
	"github.com/askiada/fuel-migrate/internal/config"
	"github.com/askiada/fuel-migrate/internal/fueltool"
)

func lookPath(found bool) fueltool.LookPathFunc {
	return func(file string) (string, error) {
		if found && file == "gz" {
			return "/usr/bin/gz", nil
		}

		return "", exec.ErrNotFound
	}
}

// countingServer answers every listing with an empty page and counts requests.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func execute(t *testing.T, found bool, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := cli.NewCommand(cli.WithLookPath(lookPath(found)))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func TestMissingFlags(t *testing.T) {
	srv, calls := countingServer(t, http.StatusOK, "[]")

	tcs := map[string]struct {
		args    []string
		wantErr error
	}{
		"both missing":  {args: []string{"--server-url", srv.URL}, wantErr: config.ErrMissingOwner},
		"key missing":   {args: []string{"--server-url", srv.URL, "-o", "acme"}, wantErr: config.ErrMissingKey},
		"owner missing": {args: []string{"--server-url", srv.URL, "-k", "secret"}, wantErr: config.ErrMissingOwner},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			stdout, _, err := execute(t, true, tc.args...)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
			assert.Empty(t, stdout)
		})
	}

	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestMissingOwnerMessage(t *testing.T) {
	_, _, err := execute(t, true)
	require.Error(t, err)
	assert.Equal(t, "Error: missing `-o <owner_name>` option", err.Error())
}

func TestToolNotFound(t *testing.T) {
	srv, calls := countingServer(t, http.StatusOK, "[]")

	_, _, err := execute(t, false, "--server-url", srv.URL)
	require.ErrorIs(t, err, fueltool.ErrToolNotFound)
	assert.Equal(t, cli.ExitToolNotFound, cli.ExitCode(err))
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRunNoModels(t *testing.T) {
	srv, calls := countingServer(t, http.StatusNotFound, "")

	stdout, _, err := execute(t, true, "--server-url", srv.URL, "-o", "Open Robotics", "-k", "secret",
		"--work-dir", t.TempDir(), "--stats")
	require.NoError(t, err)
	assert.Equal(t, "Downloading models from the Open%20Robotics owner.\nDone.\n", stdout)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestRunStrictEndOfPages(t *testing.T) {
	srv, _ := countingServer(t, http.StatusInternalServerError, `{"error":"boom"}`)

	_, _, err := execute(t, true, "--server-url", srv.URL, "-o", "acme", "-k", "secret",
		"--work-dir", t.TempDir(), "--end-of-pages", "strict")
	require.Error(t, err)
	assert.Equal(t, cli.ExitProtocol, cli.ExitCode(err))
}

func TestRunInvalidEndOfPages(t *testing.T) {
	_, _, err := execute(t, true, "-o", "acme", "-k", "secret", "--end-of-pages", "sometimes")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestUnknownFlag(t *testing.T) {
	_, _, err := execute(t, true, "--nope")
	require.Error(t, err)
	assert.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestRunNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, _, err := execute(t, true, "--server-url", srv.URL, "-o", "acme", "-k", "secret", "--work-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, cli.ExitNetwork, cli.ExitCode(err))
}

func TestRunConfigFile(t *testing.T) {
	var buf bytes.Buffer
	wrt := zip.NewWriter(&buf)
	f, err := wrt.Create("metadata.pbtxt")
	require.NoError(t, err)
	_, err = f.Write([]byte("name: \"box\""))
	require.NoError(t, err)
	require.NoError(t, wrt.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ".zip"):
			_, _ = w.Write(buf.Bytes())
		case r.URL.Query().Get("page") == "1":
			_, _ = w.Write([]byte(`[{"name":"box"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "fuel.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"owner: acme\nkey: s3cr3t\nserver_url: "+srv.URL+"\nupload_url: https://upload.example.org\nwork_dir: "+dir+"\n",
	), 0o600))
	graph := filepath.Join(dir, "pipeline.dot")

	stdout, _, err := execute(t, true, "--config", cfgFile, "--graph", graph)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Downloading page[1][1] (1) box\n")
	assert.Contains(t, stdout, "-u https://upload.example.org -o acme --header 'Private-token: ********'")
	assert.NotContains(t, stdout, "s3cr3t")
	assert.NoFileExists(t, filepath.Join(dir, "box.zip"))
	assert.FileExists(t, filepath.Join(dir, "box", "metadata.pbtxt"))

	dot, err := os.ReadFile(graph)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "transform")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitOK, cli.ExitCode(nil))
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(context.Canceled))
	assert.Equal(t, cli.ExitToolFailed, cli.ExitCode(fueltool.ErrToolFailed))
}
