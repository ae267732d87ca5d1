// Package detector describes the photosensor layout and tank shape used for
// time-of-flight correction and directional features.
package detector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// LightSpeedInWater is the group velocity of Cherenkov light in water, cm/ns.
const LightSpeedInWater = 21.5833

// ErrBadRecord is returned for malformed geometry rows.
var ErrBadRecord = errors.New("bad geometry record")

// Geometry resolves a channel to its photosensor position (cm).
type Geometry interface {
	Position(channel uint32) (r3.Vec, bool)
}

// Table is a map-backed Geometry.
type Table map[uint32]r3.Vec

// Position implements Geometry.
func (t Table) Position(channel uint32) (r3.Vec, bool) {
	p, ok := t[channel]
	return p, ok
}

// LoadTable reads "channel,x,y,z" rows. Blank lines and lines starting with
// '#' are skipped.
func LoadTable(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	t := make(Table)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}
		ch, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d channel: %v", ErrBadRecord, line, err)
		}
		var xyz [3]float64
		for i := range xyz {
			xyz[i], err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d coordinate %d: %v", ErrBadRecord, line, i, err)
			}
		}
		t[uint32(ch)] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return t, nil
}

// Tank is an upright cylinder centred on the origin.
type Tank struct {
	Radius     float64 // cm
	HalfHeight float64 // cm
}

// DefaultTank is the inner-detector volume.
var DefaultTank = Tank{Radius: 1690, HalfHeight: 1810}

// Contains reports whether v lies inside the tank.
func (t Tank) Contains(v r3.Vec) bool {
	return math.Hypot(v.X, v.Y) <= t.Radius && math.Abs(v.Z) <= t.HalfHeight
}

// WallDistance returns the distance from v to the nearest wall. Points
// outside the tank give negative values.
func (t Tank) WallDistance(v r3.Vec) float64 {
	return math.Min(t.Radius-math.Hypot(v.X, v.Y), t.HalfHeight-math.Abs(v.Z))
}

// WallDistanceAlong returns the distance from v to the wall travelling along
// dir. It returns 0 for points outside the tank or a zero direction.
func (t Tank) WallDistanceAlong(v, dir r3.Vec) float64 {
	if !t.Contains(v) || r3.Norm(dir) == 0 {
		return 0
	}
	d := r3.Unit(dir)
	best := math.Inf(1)

	// barrel: |v_xy + s d_xy| = R
	a := d.X*d.X + d.Y*d.Y
	if a > 0 {
		b := 2 * (v.X*d.X + v.Y*d.Y)
		c := v.X*v.X + v.Y*v.Y - t.Radius*t.Radius
		if disc := b*b - 4*a*c; disc >= 0 {
			if s := (-b + math.Sqrt(disc)) / (2 * a); s >= 0 {
				best = math.Min(best, s)
			}
		}
	}
	// caps
	if d.Z > 0 {
		best = math.Min(best, (t.HalfHeight-v.Z)/d.Z)
	} else if d.Z < 0 {
		best = math.Min(best, (-t.HalfHeight-v.Z)/d.Z)
	}

	if math.IsInf(best, 1) {
		return 0
	}
	return best
}
