package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.Contains(t, validateCmd.Long, "Example:")
	assert.NotNil(t, validateCmd.RunE)
}

func TestValidateFailsWithMissingConfig(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	cfgFile = "/nonexistent/firmament.yaml"
	err := runValidate(validateCmd, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
