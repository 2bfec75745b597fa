package config

import (
	"fmt"
	"strings"
	"unicode"
)

func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv    []string
		current strings.Builder
		quote   rune
		escape  bool
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		argv = append(argv, current.String())
		current.Reset()
	}

	for _, r := range input {
		switch {
		case escape:
			current.WriteRune(r)
			escape = false
		case r == '\\':
			escape = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
		case unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}

	if escape {
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}

	flush()
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}

// ExpandArgv replaces {name} placeholders in every argument with vars[name].
// Arguments that expand to an empty string are dropped together with a
// directly preceding flag, so "-v {voice}" vanishes when no voice is set.
func ExpandArgv(argv []string, vars map[string]string) []string {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		expanded := arg
		placeholder := false
		for name, value := range vars {
			token := "{" + name + "}"
			if strings.Contains(expanded, token) {
				placeholder = true
				expanded = strings.ReplaceAll(expanded, token, value)
			}
		}
		if placeholder && expanded == "" {
			if n := len(out); n > 0 && strings.HasPrefix(out[n-1], "-") {
				out = out[:n-1]
			}
			continue
		}
		out = append(out, expanded)
	}
	return out
}
