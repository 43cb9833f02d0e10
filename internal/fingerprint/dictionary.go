package fingerprint

import (
	"errors"
	"fmt"
)

var ErrEmptySourceID = errors.New("empty source id")

// Dictionary is an immutable ordered set of source ids. The position of an id
// is its feature vector index.
type Dictionary struct {
	ids   []string
	index map[string]int
}

// NewDictionary creates a dictionary from ids in the given order. Duplicate or
// empty ids are rejected.
func NewDictionary(ids []string) (*Dictionary, error) {
	d := Dictionary{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]int, len(ids)),
	}

	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("source %d: %w", i, ErrEmptySourceID)
		}
		if prev, ok := d.index[id]; ok {
			return nil, fmt.Errorf("duplicate source '%s' at %d and %d", id, prev, i)
		}
		d.index[id] = len(d.ids)
		d.ids = append(d.ids, id)
	}

	return &d, nil
}

// DictionaryFromScans builds the union of all observed sources in first seen
// order: session order, then scan order, then observation order.
func DictionaryFromScans(sessions ...[]Scan) *Dictionary {
	d := Dictionary{index: make(map[string]int)}

	for _, scans := range sessions {
		for _, scan := range scans {
			for _, o := range scan.Observations {
				if o.SourceID == "" {
					continue
				}
				if _, ok := d.index[o.SourceID]; ok {
					continue
				}
				d.index[o.SourceID] = len(d.ids)
				d.ids = append(d.ids, o.SourceID)
			}
		}
	}

	return &d
}

func (d *Dictionary) Len() int {
	return len(d.ids)
}

// Index returns the feature index of id.
func (d *Dictionary) Index(id string) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

// SourceID returns the id at index i.
func (d *Dictionary) SourceID(i int) string {
	return d.ids[i]
}

// IDs returns a copy of the ordered ids.
func (d *Dictionary) IDs() []string {
	return append([]string(nil), d.ids...)
}
