// Package aqueduct holds the core data model: task descriptors, work trees,
// artifacts, and the deterministic identity scheme that ties them together.
//
// Tasks are typed requirements()/run() descriptors plus map-reduce kinds,
// identified by a deterministic hash over their class name and arguments so
// the same logical task always resolves to the same cache key.
package aqueduct
