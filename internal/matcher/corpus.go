package matcher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"supplierflow/pkg/platform/strings"
)

// namesFile is the on-disk shape of a corpus. Either form may be used:
//
//	names: [Acme Health Ltd, Northwind Care]
//	entries:
//	  - name: Acme Health Ltd
//	    reference: SUP-0042
type namesFile struct {
	Names   []string `yaml:"names"`
	Entries []Entry  `yaml:"entries"`
}

// LoadNamesFile reads a YAML corpus. Names are trimmed and case-insensitive duplicates
// dropped; bare names come before structured entries.
func LoadNamesFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return ParseNames(raw)
}

// ParseNames decodes a YAML corpus document.
func ParseNames(raw []byte) ([]Entry, error) {
	var doc namesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	entries := EntriesFromNames(strings.DedupeFold(doc.Names))
	for _, e := range doc.Entries {
		if e.Name == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
