package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firmament.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSetupEnv_MissingConfigFile(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	cfgFile = "/nonexistent/firmament.yaml"
	_, err := setupEnv(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestSetupEnv_InvalidConfigRejectedBeforeConnecting(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	// Missing database credentials fail validation; no connection is attempted.
	cfgFile = writeConfigFile(t, `
database:
  host: ""
logging:
  level: info
`)

	_, err := setupEnv(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
