package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LabelMap maps classifier labels to identity names. It is a bijection and
// is only ever persisted together with the model it was trained with.
type LabelMap struct {
	names  map[int]string
	labels map[string]int
}

// LabelEntry is one label/name pair in label order.
type LabelEntry struct {
	Label int    `json:"label"`
	Name  string `json:"name"`
}

// NewLabelMap builds the map for a set of identities, empty ones included.
func NewLabelMap(identities []Identity) LabelMap {
	m := LabelMap{
		names:  make(map[int]string, len(identities)),
		labels: make(map[string]int, len(identities)),
	}
	for _, id := range identities {
		m.names[id.Label] = id.Name
		m.labels[id.Name] = id.Label
	}
	return m
}

// LabelMapFromEntries builds a map and rejects duplicate labels or names.
func LabelMapFromEntries(entries []LabelEntry) (LabelMap, error) {
	m := LabelMap{
		names:  make(map[int]string, len(entries)),
		labels: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, ok := m.names[e.Label]; ok {
			return LabelMap{}, fmt.Errorf("duplicate label %d", e.Label)
		}
		if _, ok := m.labels[e.Name]; ok {
			return LabelMap{}, fmt.Errorf("duplicate name %q", e.Name)
		}
		m.names[e.Label] = e.Name
		m.labels[e.Name] = e.Label
	}
	return m, nil
}

// Lookup returns the name for a label. The second result is false for
// labels the map does not know, including the classifier's "no match".
func (m LabelMap) Lookup(label int) (string, bool) {
	name, ok := m.names[label]
	return name, ok
}

// Label returns the label of an identity name.
func (m LabelMap) Label(name string) (int, bool) {
	label, ok := m.labels[name]
	return label, ok
}

func (m LabelMap) Len() int {
	return len(m.names)
}

// Entries returns all pairs sorted by label.
func (m LabelMap) Entries() []LabelEntry {
	entries := make([]LabelEntry, 0, len(m.names))
	for label, name := range m.names {
		entries = append(entries, LabelEntry{Label: label, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Label < entries[j].Label
	})
	return entries
}

// Names returns identity names in label order.
func (m LabelMap) Names() []string {
	entries := m.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// MarshalJSON encodes the map as a label-ordered list.
func (m LabelMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Entries())
}

func (m *LabelMap) UnmarshalJSON(data []byte) error {
	var entries []LabelEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	parsed, err := LabelMapFromEntries(entries)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
