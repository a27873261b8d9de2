// Package buyers decides which tracked companies an article is about.
package buyers

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed buyers.yaml
var defaultTableYAML []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Buyer is one tracked company and the keywords that identify it.
type Buyer struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases"`
	Keywords []string `yaml:"keywords"`
}

type tableFile struct {
	Buyers []Buyer `yaml:"buyers"`
}

// Table is an ordered buyer keyword table. Order is buyer priority.
type Table struct {
	buyers   []Buyer
	priority map[string]int
	lookup   map[string]string
}

// Set is a set of buyer names.
type Set map[string]struct{}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in alphabetical order.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the embedded buyer table. It panics if the embedded data
// is malformed, which the package tests rule out.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(defaultTableYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("buyers: embedded table: %v", defaultErr))
	}
	return defaultTable
}

// Parse decodes a YAML buyer table.
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode buyer table: %w", err)
	}
	if len(file.Buyers) == 0 {
		return nil, errors.New("buyer table is empty")
	}

	table := &Table{
		buyers:   make([]Buyer, 0, len(file.Buyers)),
		priority: make(map[string]int, len(file.Buyers)),
		lookup:   make(map[string]string),
	}
	for idx, buyer := range file.Buyers {
		name := strings.TrimSpace(buyer.Name)
		if name == "" {
			return nil, fmt.Errorf("buyer %d has no name", idx)
		}
		if _, exists := table.priority[name]; exists {
			return nil, fmt.Errorf("buyer %q listed twice", name)
		}

		keywords := make([]string, 0, len(buyer.Keywords))
		for _, keyword := range buyer.Keywords {
			if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
				keywords = append(keywords, keyword)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("buyer %q has no keywords", name)
		}

		table.buyers = append(table.buyers, Buyer{Name: name, Aliases: buyer.Aliases, Keywords: keywords})
		table.priority[name] = idx
		table.lookup[lookupKey(name)] = name
		for _, alias := range buyer.Aliases {
			if key := lookupKey(alias); key != "" {
				table.lookup[key] = name
			}
		}
	}
	return table, nil
}

func lookupKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Names returns buyer names in priority order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.buyers))
	for _, buyer := range t.buyers {
		names = append(names, buyer.Name)
	}
	return names
}

// All returns every buyer as a Set.
func (t *Table) All() Set {
	set := make(Set, len(t.buyers))
	for _, buyer := range t.buyers {
		set[buyer.Name] = struct{}{}
	}
	return set
}

// Priority returns the buyer's position in the table, or len(table) for
// names the table does not know.
func (t *Table) Priority(name string) int {
	if idx, ok := t.priority[name]; ok {
		return idx
	}
	return len(t.buyers)
}

// Ordered returns names in priority order followed by unknown names
// alphabetically.
func (t *Table) Ordered(names Set) []string {
	ordered := make([]string, 0, len(names))
	for _, buyer := range t.buyers {
		if names.Has(buyer.Name) {
			ordered = append(ordered, buyer.Name)
		}
	}
	var extras []string
	for name := range names {
		if _, known := t.priority[name]; !known {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(ordered, extras...)
}

// Resolve maps a buyer name or alias to its canonical name.
func (t *Table) Resolve(name string) (string, bool) {
	canonical, ok := t.lookup[lookupKey(name)]
	return canonical, ok
}

// ParseInScope parses a comma-separated BUYERS_OF_INTEREST value. Blank
// input selects every buyer.
func (t *Table) ParseInScope(raw string) (Set, error) {
	if strings.TrimSpace(raw) == "" {
		return t.All(), nil
	}

	set := make(Set)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, ok := t.Resolve(part)
		if !ok {
			return nil, fmt.Errorf("unknown buyer %q in BUYERS_OF_INTEREST (known: %s)", part, strings.Join(t.Names(), ", "))
		}
		set[name] = struct{}{}
	}
	if len(set) == 0 {
		return t.All(), nil
	}
	return set, nil
}
