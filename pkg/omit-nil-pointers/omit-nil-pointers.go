package omitnilpointers

import (
	"reflect"
	"sort"
)

// OmitNilPointers drops nil values and nil pointers from fields and dereferences the rest.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				continue
			}
			omitted[key] = v.Elem().Interface()
		} else {
			omitted[key] = value
		}
	}

	return omitted
}

// Pairs flattens fields into key/value arguments sorted by key, ready for HSET.
func Pairs(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]any, 0, len(fields)*2)
	for _, key := range keys {
		pairs = append(pairs, key, fields[key])
	}

	return pairs
}
