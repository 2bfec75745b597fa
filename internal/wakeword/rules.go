package wakeword

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// DefaultFamily is used when an accent has no dedicated rule set.
const DefaultFamily = "es"

// Confusion lists the spellings a recognizer may produce for one pattern.
type Confusion struct {
	Pattern      string   `yaml:"pattern"`
	Replacements []string `yaml:"replacements"`
}

// Rules is the data that drives variant generation for one locale family.
type Rules struct {
	Overrides  map[string][]string `yaml:"overrides"`
	Confusions []Confusion         `yaml:"confusions"`
	Vowels     string              `yaml:"vowels"`
	Prefixes   []string            `yaml:"prefixes"`
}

// RuleSet maps a locale family ("es", "en") to its rules.
type RuleSet map[string]Rules

// ParseRules decodes a YAML rule document.
func ParseRules(data []byte) (RuleSet, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse wake-word rules: %w", err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("parse wake-word rules: no locale families defined")
	}
	for family, rules := range set {
		for i, c := range rules.Confusions {
			if c.Pattern == "" {
				return nil, fmt.Errorf("parse wake-word rules: %s confusion %d has empty pattern", family, i)
			}
		}
	}
	return set, nil
}

// LoadRulesFile reads a user-provided rule document from disk.
func LoadRulesFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wake-word rules %q: %w", path, err)
	}
	return ParseRules(data)
}

// DefaultRules returns the embedded rule set.
func DefaultRules() RuleSet {
	set, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return set
}

// Family reduces an accent tag such as "es-us" to its rule family.
func Family(accent string) string {
	accent = strings.ToLower(strings.TrimSpace(accent))
	if idx := strings.IndexByte(accent, '-'); idx >= 0 {
		accent = accent[:idx]
	}
	if accent == "" {
		return DefaultFamily
	}
	return accent
}

// For returns the rules for an accent, falling back to DefaultFamily.
func (s RuleSet) For(accent string) Rules {
	if rules, ok := s[Family(accent)]; ok {
		return rules
	}
	return s[DefaultFamily]
}
