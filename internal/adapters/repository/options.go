package repository

// Option applies a configuration option to the Journal.
type Option func(*Journal)

// WithHistorySize sets how many transitions Recent can return.
func WithHistorySize(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.size = n
		}
	}
}
