package dedupe

// Option configures a Deduper.
type Option func(*fifoDeduper)

// WithMaxSize bounds the number of remembered event IDs. The oldest ID is
// forgotten first. maxSize <= 0 keeps every ID.
func WithMaxSize(maxSize int) Option {
	return func(d *fifoDeduper) {
		d.maxSize = maxSize
	}
}
