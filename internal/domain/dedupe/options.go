package dedupe

// Option configures an InMemory deduper.
type Option func(*InMemory)

// WithMaxSize bounds how many keys are remembered. maxSize <= 0 removes
// the bound.
func WithMaxSize(maxSize int) Option {
	return func(d *InMemory) {
		d.maxSize = maxSize
	}
}
