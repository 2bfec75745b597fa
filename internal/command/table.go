package command

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/roimerbautista/alkaris/internal/transcript"
)

//go:embed synonyms.yaml
var defaultTableYAML []byte

// Entry binds a canonical command to its key phrase and spoken synonyms.
// Key and Synonyms are stored normalized (accent-folded, lowercase).
type Entry struct {
	Command  Command  `yaml:"command"`
	Key      string   `yaml:"key"`
	Synonyms []string `yaml:"synonyms"`
}

// Table is an ordered, read-only synonym table.
type Table struct {
	entries []Entry
	keys    map[Command]string
}

// ParseTable decodes a YAML synonym table and normalizes every phrase.
func ParseTable(data []byte) (*Table, error) {
	var raw []Entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse synonym table: %w", err)
	}

	t := &Table{keys: make(map[Command]string, len(raw))}
	for i, e := range raw {
		if !Known(e.Command) {
			return nil, fmt.Errorf("parse synonym table: entry %d has unknown command %q", i, e.Command)
		}
		if _, dup := t.keys[e.Command]; dup {
			return nil, fmt.Errorf("parse synonym table: command %q listed twice", e.Command)
		}
		if len(e.Synonyms) == 0 {
			return nil, fmt.Errorf("parse synonym table: command %q has no synonyms", e.Command)
		}

		entry := Entry{Command: e.Command, Key: transcript.Normalize(e.Key)}
		for _, s := range e.Synonyms {
			entry.Synonyms = append(entry.Synonyms, transcript.Normalize(s))
		}
		t.entries = append(t.entries, entry)
		t.keys[e.Command] = entry.Key
	}
	return t, nil
}

// DefaultTable returns the embedded synonym table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Entries returns a copy of the table in match order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Key returns the normalized key phrase for c.
func (t *Table) Key(c Command) (string, bool) {
	key, ok := t.keys[c]
	return key, ok
}
