// Package store resolves the two environment variables spec.md §6 assigns
// meaning to: AQ_LOCAL_STORE (default root for relative artifact paths) and
// AQ_SCRATCH_STORE (default root for transient outputs). Both default to
// the process working directory when unset.
package store
