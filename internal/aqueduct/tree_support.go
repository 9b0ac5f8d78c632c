package aqueduct

import "reflect"

// isUnsupportedContainer reports whether v is a slice, array, or map that
// the walker doesn't already special-case (spec.md §4.1: "fails with an
// UnsupportedTreeNode error if it encounters a container whose element type
// it cannot rebuild"). []byte is treated as a leaf (raw binary arguments are
// common and have no useful recursive shape).
func isUnsupportedContainer(v any) bool {
	if _, isBytes := v.([]byte); isBytes {
		return false
	}
	k := reflect.TypeOf(v)
	if k == nil {
		return false
	}
	switch k.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}
