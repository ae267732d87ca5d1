// Package simulate generates synthetic detector events: a prompt burst, decay
// electron and neutron capture bursts, and a flat dark-noise floor, together
// with the matching ground truth.
package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/okian/ntag/internal/domain/detector"
	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
	"github.com/okian/ntag/pkg/logger"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Physics constants for burst generation.
const (
	promptEnergy      = 50.0    // MeV
	electronEnergy    = 35.0    // MeV
	hEnergy           = 2.2     // MeV
	gdEnergy          = 8.0     // MeV
	muonLifetime      = 2_200.0 // ns
	captureTime       = 120_000 // ns
	jitter            = 3.0     // ns
	earliestCapture   = 1_000.0 // ns
	defaultDarkRate   = 5.0     // hits per µs
	defaultDuration   = 535_000 // ns
	defaultHitsPerMeV = 6.0
)

// Generator produces reproducible events over a sensor geometry.
type Generator struct {
	geom     detector.Table
	channels []uint32
	tank     detector.Tank

	seed          uint64
	darkRate      float64
	duration      float64
	meanElectrons float64
	meanNeutrons  float64
	gdFraction    float64
	hitsPerMeV    float64
}

// New returns a generator over geom.
func New(geom detector.Table, opts ...Option) *Generator {
	g := &Generator{
		geom:          geom,
		tank:          detector.DefaultTank,
		darkRate:      defaultDarkRate,
		duration:      defaultDuration,
		meanElectrons: 0.5,
		meanNeutrons:  1.5,
		gdFraction:    0.5,
		hitsPerMeV:    defaultHitsPerMeV,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.channels = make([]uint32, 0, len(geom))
	for ch := range geom {
		g.channels = append(g.channels, ch)
	}
	sort.Slice(g.channels, func(i, j int) bool { return g.channels[i] < g.channels[j] })
	return g
}

// Event returns event i. The same generator settings and index always give
// the same event.
func (g *Generator) Event(i int) model.Event {
	src := rand.NewPCG(g.seed, uint64(i))
	rng := rand.New(src)

	prompt := g.randomVertex(rng)
	e := model.Event{ID: "sim-" + strconv.Itoa(i), PromptVertex: &prompt}

	hits := g.burst(rng, prompt, 0, promptEnergy)

	nElectrons := int(distuv.Poisson{Lambda: g.meanElectrons, Src: src}.Rand())
	for k := 0; k < nElectrons; k++ {
		t := distuv.Exponential{Rate: 1 / muonLifetime, Src: src}.Rand()
		if t < earliestCapture || t >= g.duration {
			continue
		}
		e.Taggables = append(e.Taggables, model.Taggable{Type: types.TaggableDecayElectron, Energy: electronEnergy, Time: t})
		hits = append(hits, g.burst(rng, g.near(rng, prompt), t, electronEnergy)...)
	}

	nNeutrons := int(distuv.Poisson{Lambda: g.meanNeutrons, Src: src}.Rand())
	for k := 0; k < nNeutrons; k++ {
		t := distuv.Exponential{Rate: 1.0 / captureTime, Src: src}.Rand()
		if t < earliestCapture || t >= g.duration {
			continue
		}
		energy := hEnergy
		if rng.Float64() < g.gdFraction {
			energy = gdEnergy
		}
		e.Taggables = append(e.Taggables, model.Taggable{Type: types.TaggableNeutron, Energy: energy, Time: t})
		hits = append(hits, g.burst(rng, g.near(rng, prompt), t, energy)...)
	}

	hits = append(hits, g.dark(rng, src)...)
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Time < hits[b].Time })
	e.Hits = hits
	return e
}

// Generate builds n events using up to workers goroutines.
func (g *Generator) Generate(ctx context.Context, n, workers int) ([]model.Event, error) {
	logger.Get().Info(ctx, "generating synthetic events", logger.Int("numEvents", n))

	events := make([]model.Event, n)
	if n == 0 {
		return events, nil
	}
	workers = max(1, min(workers, n))
	perWorker := n / workers
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workers-1 {
			end = n
		}
		go func(start, end int) {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					errs <- err
					return
				}
				events[i] = g.Event(i)
			}
			errs <- nil
		}(start, end)
	}

	for w := 0; w < workers; w++ {
		if err := <-errs; err != nil {
			return nil, fmt.Errorf("context cancelled during event generation: %w", err)
		}
	}
	return events, nil
}

// burst emits hits from v at t0, one per photon, on random sensors.
func (g *Generator) burst(rng *rand.Rand, v r3.Vec, t0, energy float64) []model.Hit {
	n := int(math.Round(energy * g.hitsPerMeV))
	hits := make([]model.Hit, 0, n)
	for k := 0; k < n; k++ {
		ch := g.channels[rng.IntN(len(g.channels))]
		tof := r3.Norm(r3.Sub(g.geom[ch], v)) / detector.LightSpeedInWater
		hits = append(hits, model.Hit{
			Time:    t0 + tof + rng.NormFloat64()*jitter,
			Charge:  0.5 + rng.ExpFloat64(),
			Channel: ch,
			Gate:    model.InGate,
		})
	}
	return hits
}

// dark draws a Poisson number of uniformly timed single-photon hits.
func (g *Generator) dark(rng *rand.Rand, src rand.Source) []model.Hit {
	n := int(distuv.Poisson{Lambda: g.darkRate * g.duration / 1e3, Src: src}.Rand())
	hits := make([]model.Hit, 0, n)
	for k := 0; k < n; k++ {
		hits = append(hits, model.Hit{
			Time:    rng.Float64() * g.duration,
			Charge:  0.5 + 0.5*rng.Float64(),
			Channel: g.channels[rng.IntN(len(g.channels))],
			Gate:    model.InGate,
		})
	}
	return hits
}

func (g *Generator) randomVertex(rng *rand.Rand) r3.Vec {
	inner := detector.Tank{Radius: g.tank.Radius - 200, HalfHeight: g.tank.HalfHeight - 200}
	for {
		v := r3.Vec{
			X: (2*rng.Float64() - 1) * inner.Radius,
			Y: (2*rng.Float64() - 1) * inner.Radius,
			Z: (2*rng.Float64() - 1) * inner.HalfHeight,
		}
		if inner.Contains(v) {
			return v
		}
	}
}

// near returns a point within about a metre of v, kept inside the tank.
func (g *Generator) near(rng *rand.Rand, v r3.Vec) r3.Vec {
	p := r3.Add(v, r3.Vec{X: rng.NormFloat64() * 50, Y: rng.NormFloat64() * 50, Z: rng.NormFloat64() * 50})
	if !g.tank.Contains(p) {
		return v
	}
	return p
}
