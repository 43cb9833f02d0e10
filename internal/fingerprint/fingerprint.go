package fingerprint

import "fmt"

// DefaultStrength marks a source that was not observed in a scan. It sits far
// below any strength a real receiver reports.
const DefaultStrength = -100.0

// Observation is one signal source heard in a scan.
type Observation struct {
	SourceID string  `json:"sourceID"`
	Strength float64 `json:"strength"` // dBm
}

// Scan is the set of observations reported at one instant. Observations may
// repeat a source; the last one wins when the scan is encoded.
type Scan struct {
	Timestamp    float64       `json:"timestamp"`
	Observations []Observation `json:"observations"`
}

// UnknownSourceError is returned when a scan references a source that the
// dictionary does not contain.
type UnknownSourceError struct {
	Session   string
	ScanIndex int
	Timestamp float64
	SourceID  string
}

func (e *UnknownSourceError) Error() string {
	if e.Session == "" {
		return fmt.Sprintf("unknown source '%s' in scan at %.6f", e.SourceID, e.Timestamp)
	}
	return fmt.Sprintf("session '%s': unknown source '%s' in scan %d at %.6f",
		e.Session, e.SourceID, e.ScanIndex, e.Timestamp)
}

// WithDefaultValue sets the value used for sources absent from a scan
func WithDefaultValue(v float64) func(*Builder) {
	return func(b *Builder) {
		b.defaultValue = v
	}
}

// Builder encodes scans into fixed width feature vectors over a dictionary.
type Builder struct {
	dict         *Dictionary
	defaultValue float64
}

// NewBuilder creates a new Builder
func NewBuilder(dict *Dictionary, options ...func(*Builder)) *Builder {
	b := Builder{
		dict:         dict,
		defaultValue: DefaultStrength,
	}
	for _, option := range options {
		option(&b)
	}
	return &b
}

// Width returns the feature vector width.
func (b *Builder) Width() int {
	return b.dict.Len()
}

// Build allocates a new feature vector for the scan.
func (b *Builder) Build(scan Scan) ([]float64, error) {
	v := make([]float64, b.dict.Len())
	if err := b.BuildInto(v, scan); err != nil {
		return nil, err
	}
	return v, nil
}

// BuildInto encodes the scan into dst, which must have the dictionary width.
func (b *Builder) BuildInto(dst []float64, scan Scan) error {
	if len(dst) != b.dict.Len() {
		return fmt.Errorf("feature vector has width %d, dictionary has %d sources", len(dst), b.dict.Len())
	}

	for i := range dst {
		dst[i] = b.defaultValue
	}

	for _, o := range scan.Observations {
		idx, ok := b.dict.Index(o.SourceID)
		if !ok {
			return &UnknownSourceError{Timestamp: scan.Timestamp, SourceID: o.SourceID}
		}
		dst[idx] = o.Strength
	}

	return nil
}

// BuildVector encodes a single scan with the given default for absent sources.
func BuildVector(scan Scan, dict *Dictionary, defaultValue float64) ([]float64, error) {
	return NewBuilder(dict, WithDefaultValue(defaultValue)).Build(scan)
}
