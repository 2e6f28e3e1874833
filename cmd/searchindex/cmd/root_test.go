package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sharethrift/searchindex/internal/errors"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing with --help
	out, _, err := execute(t, "--help")

	// Then: usage lists every subcommand
	require.NoError(t, err)
	for _, sub := range []string{"search", "hash", "watch", "config", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "searchindex version")
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "version")

	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeInvalidInput))
}

func TestRootCmd_MissingExplicitConfig(t *testing.T) {
	// Given: a --config path that does not exist

	// When: running a command that needs the configuration
	_, _, err := execute(t, "--config", "/nonexistent/searchindex.yaml", "search", exampleFixture(t), "bike")

	// Then: the config load error surfaces
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.ErrCodeConfigNotFound))
}

func TestRootCmd_LogsToCommandStderr(t *testing.T) {
	_, stderr, err := execute(t, "--log-level", "debug", "version")

	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"cli_started"`)
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, _, err := execute(t, "frobnicate")
	assert.Error(t, err)
}
