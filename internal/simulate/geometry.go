package simulate

import (
	"math"

	"github.com/okian/ntag/internal/domain/detector"
	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry returns sensors spread over the tank wall: rings rings of perRing
// sensors on the barrel and a ring of perRing/2 on each cap.
func Geometry(tank detector.Tank, rings, perRing int) detector.Table {
	geom := detector.Table{}
	ch := uint32(0)
	for r := 0; r < rings; r++ {
		z := -tank.HalfHeight + (float64(r)+0.5)*2*tank.HalfHeight/float64(rings)
		for k := 0; k < perRing; k++ {
			phi := 2 * math.Pi * float64(k) / float64(perRing)
			geom[ch] = r3.Vec{X: tank.Radius * math.Cos(phi), Y: tank.Radius * math.Sin(phi), Z: z}
			ch++
		}
	}
	capCount := max(1, perRing/2)
	for _, z := range []float64{-tank.HalfHeight, tank.HalfHeight} {
		for k := 0; k < capCount; k++ {
			phi := 2 * math.Pi * float64(k) / float64(capCount)
			geom[ch] = r3.Vec{X: tank.Radius / 2 * math.Cos(phi), Y: tank.Radius / 2 * math.Sin(phi), Z: z}
			ch++
		}
	}
	return geom
}
