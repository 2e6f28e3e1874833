package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sharethrift/searchindex/internal/config"
)

func TestConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the embedded template decoded over an empty config
	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(ConfigTemplate), &got))

	// Then: every value equals the built-in default
	assert.Equal(t, *config.NewConfig(), got)
}

func TestExampleFixture_Decodes(t *testing.T) {
	var fx struct {
		Index struct {
			Name   string           `yaml:"name"`
			Fields []map[string]any `yaml:"fields"`
		} `yaml:"index"`
		Documents []map[string]any `yaml:"documents"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(ExampleFixture), &fx))

	assert.Equal(t, "listings", fx.Index.Name)
	assert.Len(t, fx.Index.Fields, 7)
	assert.Len(t, fx.Documents, 4)
}
