package store

import (
	"os"
	"path/filepath"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

const (
	// LocalStoreEnv names the root relative artifact paths resolve against.
	LocalStoreEnv = "AQ_LOCAL_STORE"
	// ScratchStoreEnv names the root transient-output paths resolve against.
	ScratchStoreEnv = "AQ_SCRATCH_STORE"
)

// Roots is the pair of resolved store roots for one process invocation.
type Roots struct {
	Local   string
	Scratch string
}

// Load reads AQ_LOCAL_STORE/AQ_SCRATCH_STORE from the environment, falling
// back to the process working directory for whichever is unset (spec.md
// §6). A directory resolution failure falls back to "." rather than
// erroring, since a missing os.Getwd() is a process-environment problem no
// caller here can recover from.
func Load() Roots {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Roots{
		Local:   envOr(LocalStoreEnv, cwd),
		Scratch: envOr(ScratchStoreEnv, cwd),
	}
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

// ResolveLocal joins a task-chosen relative path against the local-store
// root; an absolute path is returned unchanged.
func (r Roots) ResolveLocal(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(r.Local, relPath)
}

// ResolveScratch is ResolveLocal against the scratch root instead.
func (r Roots) ResolveScratch(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(r.Scratch, relPath)
}

// Artifact returns a LocalFilesystemArtifact for relPath, resolved against
// the local-store root. Task authors call this from their Artifact() method
// instead of joining AQ_LOCAL_STORE by hand.
func (r Roots) Artifact(relPath string) *aqueduct.LocalFilesystemArtifact {
	return &aqueduct.LocalFilesystemArtifact{Path: r.ResolveLocal(relPath)}
}
