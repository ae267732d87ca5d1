package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMaxResults bounds how many per-event results are retained. The oldest
// result is evicted first. Running totals are unaffected by eviction.
func WithMaxResults(n int) Option {
	return func(s *TreapStore) {
		if n > 0 {
			s.maxResults = n
		}
	}
}
