package openai

import (
	"testing"

	"github.com/praetorian-inc/deliberate/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromMap_RequiresModel(t *testing.T) {
	_, err := ConfigFromMap(registry.Config{"api_key": "sk-test"})
	require.Error(t, err)
}

func TestConfigFromMap_ReadsAPIKey(t *testing.T) {
	cfg, err := ConfigFromMap(registry.Config{"model": "gpt-4o", "api_key": "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "sk-test", cfg.APIKey)
}

func TestNewWithOptions_SetsModelAndKey(t *testing.T) {
	gw, err := NewWithOptions(WithModel("gpt-4o-mini"), WithAPIKey("sk-test"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", gw.model)
}
