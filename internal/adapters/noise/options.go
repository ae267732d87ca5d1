package noise

// Option configures an Overlay.
type Option func(*Overlay)

// WithWindow sets the signal window, ns, that each noise part fills.
func WithWindow(start, end float64) Option {
	return func(o *Overlay) {
		o.start, o.end = start, end
	}
}

// WithDeadtime sets the deadtime applied after overlaying, ns.
func WithDeadtime(d float64) Option {
	return func(o *Overlay) {
		if d >= 0 {
			o.deadtime = d
		}
	}
}

// WithDensityRange keeps only entries whose hit density, in hits per µs,
// lies within [lo, hi].
func WithDensityRange(lo, hi float64) Option {
	return func(o *Overlay) {
		o.minDensity, o.maxDensity = lo, hi
	}
}

// WithRepeat allows the overlay to wrap around to the first entry.
func WithRepeat(repeat bool) Option {
	return func(o *Overlay) {
		o.repeat = repeat
	}
}
