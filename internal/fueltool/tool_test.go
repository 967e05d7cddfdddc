package fueltool_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/fuel-migrate/internal/fueltool"
)

func lookPathIn(found map[string]string) fueltool.LookPathFunc {
	return func(file string) (string, error) {
		if path, ok := found[file]; ok {
			return path, nil
		}

		return "", exec.ErrNotFound
	}
}

// script writes an executable shell script standing for the tool. Tests using it
// do not run in parallel so that no other test forks while the script is open.
func script(t *testing.T, body string) string {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}

	path := filepath.Join(t.TempDir(), "gz")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		found    map[string]string
		wantName string
	}{
		"primary":     {found: map[string]string{"gz": "/usr/bin/gz", "ign": "/usr/bin/ign"}, wantName: "gz"},
		"legacy only": {found: map[string]string{"ign": "/usr/bin/ign"}, wantName: "ign"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tool, err := fueltool.Resolve(lookPathIn(tc.found), []string{"gz", "ign"})
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, tool.Name)
			assert.Equal(t, tc.found[tc.wantName], tool.Path)
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()

	_, err := fueltool.Resolve(lookPathIn(nil), []string{"gz", "ign"})
	require.ErrorIs(t, err, fueltool.ErrToolNotFound)
	assert.Equal(t, "Unable to find the ign or gz command line tools.", err.Error())
}

func TestUploadCommand(t *testing.T) {
	t.Parallel()

	tool, err := fueltool.Resolve(lookPathIn(map[string]string{"ign": "/opt/bin/ign"}), []string{"gz", "ign"})
	require.NoError(t, err)

	got := tool.UploadCommand(fueltool.UploadRequest{
		Dir:   "/work/Big Box",
		URL:   "https://fuel.gazebosim.org",
		Owner: "Open Robotics",
		Key:   "s3cr3t",
	})
	assert.Equal(t,
		`ign fuel upload -m '/work/Big Box' -u https://fuel.gazebosim.org -o 'Open Robotics' --header 'Private-token: ********'`,
		got)
	assert.NotContains(t, got, "s3cr3t")
}

func TestConvert(t *testing.T) {
	path := script(t, `[ "$1 $2 $3" = "fuel meta --config2pbtxt" ] || exit 3; printf 'name: "%s"\n' "$4"`)
	tool, err := fueltool.Resolve(lookPathIn(map[string]string{"gz": path}), []string{"gz"})
	require.NoError(t, err)

	out, err := tool.Convert(context.Background(), "/work/box/model.config")
	require.NoError(t, err)
	assert.Equal(t, "name: \"/work/box/model.config\"\n", string(out))
}

func TestConvertFailure(t *testing.T) {
	path := script(t, `echo "no such file" >&2; exit 1`)
	tool, err := fueltool.Resolve(lookPathIn(map[string]string{"gz": path}), []string{"gz"})
	require.NoError(t, err)

	_, err = tool.Convert(context.Background(), "/work/box/model.config")
	require.ErrorIs(t, err, fueltool.ErrToolFailed)
	assert.Contains(t, err.Error(), "no such file")
}

func TestUpload(t *testing.T) {
	path := script(t, `for arg in "$@"; do echo "$arg"; done`)
	var stdout bytes.Buffer
	tool, err := fueltool.Resolve(lookPathIn(map[string]string{"gz": path}), []string{"gz"},
		fueltool.WithOutput(&stdout, &stdout))
	require.NoError(t, err)

	req := fueltool.UploadRequest{Dir: "/work/box", URL: "https://fuel.example.org", Owner: "Open Robotics", Key: "k"}
	require.NoError(t, tool.Upload(context.Background(), req))
	assert.Equal(t, strings.Join(req.Args(), "\n")+"\n", stdout.String())
}

func TestUploadFailure(t *testing.T) {
	path := script(t, `exit 2`)
	tool, err := fueltool.Resolve(lookPathIn(map[string]string{"gz": path}), []string{"gz"})
	require.NoError(t, err)

	err = tool.Upload(context.Background(), fueltool.UploadRequest{Dir: "/work/box"})
	assert.ErrorIs(t, err, fueltool.ErrToolFailed)
}
