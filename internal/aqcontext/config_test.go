package aqcontext

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DeepKeyLookupAndMerge(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.MergeTOML([]byte(`
[tasks.Square]
exponent = 2
`)))

	v, ok := c.Get("tasks.square.exponent")
	require.True(t, ok)
	assert.EqualValues(t, 2, v)

	// A later merge overrides the earlier one (priority order).
	require.NoError(t, c.MergeTOML([]byte(`
[tasks.Square]
exponent = 3
`)))
	v, ok = c.Get("tasks.square.exponent")
	require.True(t, ok)
	assert.EqualValues(t, 3, v)
}

func TestConfig_Section(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.MergeTOML([]byte(`
[tasks.Square]
exponent = 2
`)))

	section := c.Section("tasks.Square")
	v, ok := section.Get("exponent")
	require.True(t, ok)
	assert.EqualValues(t, 2, v)

	empty := c.Section("does.not.exist")
	_, ok = empty.Get("anything")
	assert.False(t, ok)
}

func TestConfig_InterpolatesEnvironmentVariables(t *testing.T) {
	require.NoError(t, os.Setenv("AQ_TEST_ROOT", "/tmp/aqueduct-test"))
	defer os.Unsetenv("AQ_TEST_ROOT")

	c := NewConfig()
	require.NoError(t, c.MergeTOML([]byte(`
path = "${AQ_TEST_ROOT}/out.bin"
`)))

	v, ok := c.Get("path")
	require.True(t, ok)
	assert.Equal(t, "/tmp/aqueduct-test/out.bin", v)
}

func TestConfig_InterpolatesOtherKeys(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.MergeTOML([]byte(`
root = "/data"
output = "${root}/result.bin"
`)))

	v, ok := c.Get("output")
	require.True(t, ok)
	assert.Equal(t, "/data/result.bin", v)
}
