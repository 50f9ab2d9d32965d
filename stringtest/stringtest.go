// Package stringtest builds expected multi-line output for tests.
package stringtest

import "strings"

// JoinLF joins multiple strings with LF line endings.
//
// Example:
//
//	want := stringtest.JoinLF(
//		"Injecting success.",
//		"Results in: /tmp/out/perf.data.jitted",
//	)
func JoinLF(ss ...string) string {
	return strings.Join(ss, "\n")
}

// Input strips one leading and one trailing newline from s and removes the
// indentation common to all non-blank lines, so expected output can be
// written as an indented raw string literal. Whitespace-only lines become
// empty.
func Input(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")

	lines := strings.Split(s, "\n")

	indent := -1

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}

		n := len(line) - len(trimmed)
		if indent < 0 || n < indent {
			indent = n
		}
	}

	for i, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			lines[i] = ""
		case indent > 0:
			lines[i] = line[indent:]
		}
	}

	return strings.Join(lines, "\n")
}
