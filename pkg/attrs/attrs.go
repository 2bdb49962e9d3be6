// Package attrs reads values back out of slog-style key/value argument lists.
package attrs

// Lookup returns the value paired with key in kv, a list laid out as
// [key1, value1, key2, value2, ...]. The last pairing wins, matching how a
// structured logger renders duplicate keys. ok is false when the key is
// missing or its value is not a T.
func Lookup[T any](kv []any, key string) (value T, ok bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, isString := kv[i].(string); isString && k == key {
			value, ok = kv[i+1].(T)
		}
	}
	return value, ok
}

// String is Lookup for string values, returning "" when absent.
func String(kv []any, key string) string {
	s, _ := Lookup[string](kv, key)
	return s
}
