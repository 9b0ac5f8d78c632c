// Package codec provides the pluggable reader/writer dispatch table spec.md
// §4.5 refers to ("the artifact carries enough type information for a
// default reader table to choose the decoder"). The core contract never
// mandates a specific wire format (spec.md §1's Out of scope list names
// "artifact serialization format details ... not a specific codec"); this
// package is the seam a deployment plugs concrete codecs into.
//
// Grounded on original_source/src/aqueduct/task/autostore.go's Python
// counterpart (READER_OF_TYPE / READER_OF_SUFFIX / WRITERS dispatch tables
// in autostore.py), reimplemented as a reflect.Type-keyed registry with a
// JSON fallback instead of the original's pandas/xarray/pickle table, since
// those libraries have no bearing on a Go rewrite.
package codec
