// Package model contains domain models passed between pipeline stages.
package model

// InGate is the gate flag bit set on hits recorded inside the trigger gate.
const InGate uint8 = 2

// Hit is one photosensor hit. Times are in ns, charges in p.e.
type Hit struct {
	Time    float64 `json:"t"`
	Charge  float64 `json:"q"`
	Channel uint32  `json:"ch"`
	Gate    uint8   `json:"gate,omitempty"`
}

// IsInGate reports whether the hit carries the in-gate flag.
func (h Hit) IsInGate() bool { return h.Gate&InGate != 0 }
