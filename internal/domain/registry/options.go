package registry

import "github.com/okian/gazefocus/pkg/logger"

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for capacity-overflow warnings.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithExpectedSize pre-sizes the internal map.
func WithExpectedSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.expected = n
		}
	}
}
