package aqueduct

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// ComputeUniqueKey renders spec.md §4.2's "<ClassName>-<hex_hash>" for a
// fully-bound task. Canonicalization sorts keyed arguments by key, recurses
// into nested structures, renders floats at fixed precision, and represents
// nested Task values by their own unique key — exactly the rules spec.md
// §4.2 lists.
//
// SHA-256 over a length-prefixed field encoding (writeField below) applied
// to Aqueduct's arbitrary keyed/positional argument trees.
func ComputeUniqueKey(t Task) (UniqueKey, error) {
	h := sha256.New()
	enc := &canonEncoder{h: h}

	args := t.Args()
	if err := enc.encodeArgs(args); err != nil {
		return "", fmt.Errorf("canonicalize args for %s: %w", t.ClassName(), err)
	}

	sum := h.Sum(nil)
	return UniqueKey(fmt.Sprintf("%s-%s", t.ClassName(), hex.EncodeToString(sum))), nil
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

type canonEncoder struct {
	h hashWriter
}

func (e *canonEncoder) writeField(data []byte) {
	length := uint64(len(data))
	lengthBytes := []byte{
		byte(length >> 56), byte(length >> 48), byte(length >> 40), byte(length >> 32),
		byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
	}
	e.h.Write(lengthBytes)
	e.h.Write(data)
}

func (e *canonEncoder) encodeArgs(a Args) error {
	e.writeField([]byte(strconv.Itoa(len(a.Positional))))
	for _, v := range a.Positional {
		if err := e.encodeValue(v); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(a.Keyed))
	for k := range a.Keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.writeField([]byte(strconv.Itoa(len(keys))))
	for _, k := range keys {
		e.writeField([]byte(k))
		if err := e.encodeValue(a.Keyed[k]); err != nil {
			return err
		}
	}
	return nil
}

func (e *canonEncoder) encodeValue(v any) error {
	switch val := v.(type) {
	case nil:
		e.writeField([]byte("null"))
	case Task:
		key, err := ComputeUniqueKey(val)
		if err != nil {
			return err
		}
		e.writeField([]byte("task:"))
		e.writeField([]byte(key))
	case bool:
		if val {
			e.writeField([]byte("bool:true"))
		} else {
			e.writeField([]byte("bool:false"))
		}
	case string:
		e.writeField([]byte("str:"))
		e.writeField([]byte(val))
	case []byte:
		e.writeField([]byte("bytes:"))
		e.writeField(val)
	case int:
		return e.encodeValue(int64(val))
	case int64:
		e.writeField([]byte("int:"))
		e.writeField([]byte(strconv.FormatInt(val, 10)))
	case float64:
		e.writeField([]byte("float:"))
		// Fixed precision per spec.md §4.2: exponent notation with 15 digits
		// after the decimal point, whatever the magnitude of the value.
		e.writeField([]byte(strconv.FormatFloat(val, 'e', 15, 64)))
	case []any:
		e.writeField([]byte("list:"))
		e.writeField([]byte(strconv.Itoa(len(val))))
		for _, item := range val {
			if err := e.encodeValue(item); err != nil {
				return err
			}
		}
	case map[string]any:
		e.writeField([]byte("map:"))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.writeField([]byte(strconv.Itoa(len(keys))))
		for _, k := range keys {
			e.writeField([]byte(k))
			if err := e.encodeValue(val[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported argument type %T for unique key canonicalization", v)
	}
	return nil
}
