// Package template renders message templates by substituting named variables.
//
// Bodies use flat {placeholder} tokens. Rendering is pure and deterministic;
// placeholders without a matching variable are left verbatim so that a partial
// variable set never errors.
package template

import (
	"sort"
	"strings"
)

// Render replaces every occurrence of "{key}" in body with the value for each
// key present in vars. Braces delimit a flat key name; nesting is not supported.
// Substitution is a single left-to-right pass, so values containing brace
// tokens are never re-expanded.
func Render(body string, vars map[string]string) string {
	if len(vars) == 0 {
		return body
	}
	// Longer keys first so that a key prefixing another ("{id}" vs "{ids}")
	// resolves the same way regardless of map iteration order.
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", vars[key])
	}
	return strings.NewReplacer(pairs...).Replace(body)
}
