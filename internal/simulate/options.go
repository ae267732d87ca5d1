package simulate

// Option configures a Generator.
type Option func(*Generator)

// WithSeed fixes the random stream. Event i of a seed is always the same.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithDarkRate sets the dark-noise rate in hits per µs.
func WithDarkRate(rate float64) Option {
	return func(g *Generator) {
		if rate >= 0 {
			g.darkRate = rate
		}
	}
}

// WithDuration sets the recorded span of each event, ns.
func WithDuration(ns float64) Option {
	return func(g *Generator) {
		if ns > 0 {
			g.duration = ns
		}
	}
}

// WithCaptures sets the mean numbers of decay electrons and neutrons per event.
func WithCaptures(electrons, neutrons float64) Option {
	return func(g *Generator) {
		if electrons >= 0 {
			g.meanElectrons = electrons
		}
		if neutrons >= 0 {
			g.meanNeutrons = neutrons
		}
	}
}

// WithGdFraction sets the share of neutrons captured on gadolinium.
func WithGdFraction(f float64) Option {
	return func(g *Generator) {
		if f >= 0 && f <= 1 {
			g.gdFraction = f
		}
	}
}

// WithHitsPerMeV sets the light yield of bursts.
func WithHitsPerMeV(n float64) Option {
	return func(g *Generator) {
		if n > 0 {
			g.hitsPerMeV = n
		}
	}
}
