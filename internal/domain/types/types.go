// Package types contains the enumerations shared across the pipeline and the
// output schema.
package types

import (
	"fmt"
	"strings"
)

// Label is the ground-truth derived classification of a candidate. It is
// written only by the taggable matcher.
type Label int

// Label values. The numeric values are part of the output schema.
const (
	LabelUnset Label = iota - 1
	LabelNoise
	LabelDecayElectron
	LabelNH
	LabelNGd
	LabelRemnant
	LabelUndefined
)

var labelNames = map[Label]string{
	LabelUnset:         "unset",
	LabelNoise:         "noise",
	LabelDecayElectron: "decay-electron",
	LabelNH:            "n-on-H",
	LabelNGd:           "n-on-Gd",
	LabelRemnant:       "remnant",
	LabelUndefined:     "undefined",
}

func (l Label) String() string {
	if s, ok := labelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("label(%d)", int(l))
}

// IsNeutron reports whether the label marks a true neutron capture.
func (l Label) IsNeutron() bool { return l == LabelNH || l == LabelNGd }

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(b []byte) error {
	for k, v := range labelNames {
		if strings.EqualFold(v, string(b)) {
			*l = k
			return nil
		}
	}
	return fmt.Errorf("unknown label %q", string(b))
}

// TagClass is the algorithm's own electron/neutron decision for a candidate,
// and the resolved tagged type of a taggable. It never depends on Label.
type TagClass int

// TagClass values. TagEN marks a taggable claimed by both an electron-like
// and a neutron-like candidate.
const (
	TagMissed TagClass = iota
	TagElectron
	TagNeutron
	TagEN
)

var tagClassNames = map[TagClass]string{
	TagMissed:   "missed",
	TagElectron: "e",
	TagNeutron:  "n",
	TagEN:       "EN",
}

func (c TagClass) String() string {
	if s, ok := tagClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("tagclass(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c TagClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *TagClass) UnmarshalText(b []byte) error {
	for k, v := range tagClassNames {
		if v == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown tag class %q", string(b))
}

// TaggableType is the physical kind of a ground-truth marker.
type TaggableType int

// TaggableType values.
const (
	TaggableOther TaggableType = iota
	TaggableDecayElectron
	TaggableNeutron
)

var taggableTypeNames = map[TaggableType]string{
	TaggableOther:         "other",
	TaggableDecayElectron: "e",
	TaggableNeutron:       "n",
}

func (t TaggableType) String() string {
	if s, ok := taggableTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("taggable(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t TaggableType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TaggableType) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "n", "neutron":
		*t = TaggableNeutron
	case "e", "decay-electron", "electron":
		*t = TaggableDecayElectron
	case "other", "":
		*t = TaggableOther
	default:
		return fmt.Errorf("unknown taggable type %q", string(b))
	}
	return nil
}
