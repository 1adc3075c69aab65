package main

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// diagnosticASCII folds an operator-supplied point/subject label to
// plain ASCII for terminal display. It never touches the label used
// to address AppStorage — only what this CLI echoes back — so a
// non-ASCII point id still round-trips correctly through the API.
func diagnosticASCII(s string) string {
	t := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if r <= 127 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
