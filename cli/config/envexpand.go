// Package config handles docqa.yaml loading.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in input:
//
//	${NAME}            value of NAME, or "" when unset
//	${NAME:-fallback}  value of NAME, or fallback when unset or empty
//
// An unset reference without a fallback is not an error; a missing API URL
// or adapter URL is reported when that value is used.
func ExpandEnv(input string) string {
	return expandWith(input, os.LookupEnv)
}

func expandWith(input string, lookup func(string) (string, bool)) string {
	matches := envRef.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		name := input[m[2]:m[3]]
		if v, set := lookup(name); set && v != "" {
			b.WriteString(v)
			continue
		}
		if m[4] >= 0 {
			b.WriteString(input[m[4]:m[5]])
		}
	}
	b.WriteString(input[last:])
	return b.String()
}
