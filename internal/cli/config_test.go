package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
)

func TestConfigCmd_ShowPrintsAllSettings(t *testing.T) {
	cfg := aqcontext.NewConfig()
	require.NoError(t, cfg.MergeTOML([]byte("[tasks.root]\nvalue = 1\n")))

	var buf bytes.Buffer
	result, err := ConfigCmd(newFixtureRegistry(), cfg, ConfigInvocation{Show: true}, &buf)
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, result.ExitCode)
	assert.Contains(t, buf.String(), "tasks")
}

func TestConfigCmd_DefaultsToShowWhenNoFlagsGiven(t *testing.T) {
	cfg := aqcontext.NewConfig()
	var buf bytes.Buffer
	_, err := ConfigCmd(newFixtureRegistry(), cfg, ConfigInvocation{}, &buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestConfigCmd_SourcesListsEachMergeOperation(t *testing.T) {
	cfg := aqcontext.NewConfig()
	require.NoError(t, cfg.MergeTOML([]byte("[tasks.root]\nvalue = 1\n")))
	cfg.Set("tasks.root.value", int64(2))

	var buf bytes.Buffer
	_, err := ConfigCmd(newFixtureRegistry(), cfg, ConfigInvocation{Sources: true}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "merge:inline-toml")
	assert.Contains(t, buf.String(), "override:tasks.root.value=2")
}

func TestConfigCmd_ResolveRequiresTask(t *testing.T) {
	cfg := aqcontext.NewConfig()
	var buf bytes.Buffer
	_, err := ConfigCmd(newFixtureRegistry(), cfg, ConfigInvocation{Resolve: true}, &buf)
	assert.Error(t, err)
}

func TestConfigCmd_ResolvePrintsTaskSection(t *testing.T) {
	cfg := aqcontext.NewConfig()
	var buf bytes.Buffer
	_, err := ConfigCmd(newFixtureRegistry(), cfg, ConfigInvocation{
		Resolve: true,
		Task:    "child",
		Params:  map[string]any{"value": int64(5)},
	}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tasks.child")
}

func TestParseConfigArgs_BindsTaskFlagAndParams(t *testing.T) {
	inv, err := ParseConfigArgs([]string{"--resolve", "--task", "child", "value=5"})
	require.NoError(t, err)
	assert.True(t, inv.Resolve)
	assert.Equal(t, "child", inv.Task)
	assert.EqualValues(t, 5, inv.Params["value"])
}
