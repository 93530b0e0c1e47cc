// Package naming resolves raw table cell values into absolute resource identifiers.
package naming

import "strings"

// Resolve turns a cell value into an absolute identifier.
//
// A value wrapped in angle brackets is taken verbatim (namespace ignored).
// Any other non-blank value is appended to namespace. Blank input resolves
// to nothing and the second return value is false.
//
// Example:
//
//	Resolve("<http://x/y>", ns)          // "http://x/y", true
//	Resolve("Sensor", "http://ex/c/")    // "http://ex/c/Sensor", true
//	Resolve("  ", ns)                    // "", false
func Resolve(raw, namespace string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", false
	}
	if len(v) >= 2 && v[0] == '<' && v[len(v)-1] == '>' {
		inner := v[1 : len(v)-1]
		if inner == "" {
			return "", false
		}
		return inner, true
	}
	return namespace + v, true
}

// ResolveAll resolves each value and drops the ones that resolve to nothing.
func ResolveAll(raws []string, namespace string) []string {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		if id, ok := Resolve(raw, namespace); ok {
			out = append(out, id)
		}
	}
	return out
}
