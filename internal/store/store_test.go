package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UsesEnvVarsWhenSet(t *testing.T) {
	t.Setenv(LocalStoreEnv, "/local/root")
	t.Setenv(ScratchStoreEnv, "/scratch/root")

	roots := Load()
	assert.Equal(t, "/local/root", roots.Local)
	assert.Equal(t, "/scratch/root", roots.Scratch)
}

func TestLoad_DefaultsToWorkingDirectoryWhenUnset(t *testing.T) {
	os.Unsetenv(LocalStoreEnv)
	os.Unsetenv(ScratchStoreEnv)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	roots := Load()
	assert.Equal(t, cwd, roots.Local)
	assert.Equal(t, cwd, roots.Scratch)
}

func TestRoots_ResolveLocal_JoinsRelativePathAgainstRoot(t *testing.T) {
	roots := Roots{Local: "/local/root", Scratch: "/scratch/root"}
	assert.Equal(t, filepath.Join("/local/root", "out.json"), roots.ResolveLocal("out.json"))
}

func TestRoots_ResolveLocal_LeavesAbsolutePathUnchanged(t *testing.T) {
	roots := Roots{Local: "/local/root"}
	assert.Equal(t, "/abs/out.json", roots.ResolveLocal("/abs/out.json"))
}

func TestRoots_ResolveScratch_JoinsRelativePathAgainstScratchRoot(t *testing.T) {
	roots := Roots{Scratch: "/scratch/root"}
	assert.Equal(t, filepath.Join("/scratch/root", "tmp.bin"), roots.ResolveScratch("tmp.bin"))
}

func TestRoots_Artifact_ResolvesPathAgainstLocalRoot(t *testing.T) {
	roots := Roots{Local: "/local/root"}
	artifact := roots.Artifact("result.json")
	assert.Equal(t, filepath.Join("/local/root", "result.json"), artifact.Path)
}
