package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/fuel-migrate/internal/config"
)

func newViper(t *testing.T, values map[string]any) *viper.Viper {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)

	for k, val := range values {
		v.Set(k, val)
	}

	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(newViper(t, nil))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, config.DefaultServerURL, cfg.UploadURL)
	assert.Equal(t, "1.0", cfg.APIVersion)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, "ignitionrobotics", cfg.OldDomain)
	assert.Equal(t, "gazebosim", cfg.NewDomain)
	assert.Equal(t, []string{"fuel", "app"}, cfg.Subdomains)
	assert.Equal(t, []string{"gz", "ign"}, cfg.Tools)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.Apply)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "migrate.yaml")
	err := os.WriteFile(file, []byte("owner: Open Robotics\nkey: secret\nworkers: 4\ntimeout: 30s\nsubdomains: [fuel]\n"), 0o600)
	require.NoError(t, err)

	cfg, err := config.Load(newViper(t, map[string]any{config.KeyConfigFile: file}))
	require.NoError(t, err)

	assert.Equal(t, "Open Robotics", cfg.Owner)
	assert.Equal(t, "secret", cfg.Key)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"fuel"}, cfg.Subdomains)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(newViper(t, map[string]any{config.KeyConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		values  map[string]any
		wantErr error
	}{
		"missing owner and key": {
			wantErr: config.ErrMissingOwner,
		},
		"missing key": {
			values:  map[string]any{config.KeyOwner: "openrobotics"},
			wantErr: config.ErrMissingKey,
		},
		"missing owner": {
			values:  map[string]any{config.KeyKey: "secret"},
			wantErr: config.ErrMissingOwner,
		},
		"zero page size": {
			values:  map[string]any{config.KeyOwner: "o", config.KeyKey: "k", config.KeyPageSize: 0},
			wantErr: config.ErrInvalidConfig,
		},
		"zero workers": {
			values:  map[string]any{config.KeyOwner: "o", config.KeyKey: "k", config.KeyWorkers: 0},
			wantErr: config.ErrInvalidConfig,
		},
		"empty new domain": {
			values:  map[string]any{config.KeyOwner: "o", config.KeyKey: "k", config.KeyNewDomain: ""},
			wantErr: config.ErrInvalidConfig,
		},
		"valid": {
			values: map[string]any{config.KeyOwner: "o", config.KeyKey: "k"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Load(newViper(t, tc.values))
			require.NoError(t, err)

			err = cfg.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)

				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestMissingOwnerMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Error: missing `-o <owner_name>` option", config.ErrMissingOwner.Error())
	assert.Equal(t, "Error: missing `-k <key>` option", config.ErrMissingKey.Error())
}

func TestEscapeOwner(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Open%20Robotics", config.EscapeOwner("Open Robotics"))
	assert.Equal(t, "openrobotics", config.EscapeOwner("openrobotics"))

	cfg := &config.Config{Owner: "a b c"}
	assert.Equal(t, "a%20b%20c", cfg.EscapedOwner())
}
