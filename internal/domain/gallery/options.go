package gallery

import "time"

// Option applies a configuration option to the Gallery.
type Option func(*Gallery)

// WithDimension sets the feature vector dimension enforced on enrollment.
func WithDimension(dim int) Option {
	return func(g *Gallery) {
		if dim > 0 {
			g.dimension = dim
		}
	}
}

// WithStore sets the persistence collaborator. Without one the gallery is memory only.
func WithStore(store Store) Option {
	return func(g *Gallery) {
		g.store = store
	}
}

// WithNow overrides the clock used to stamp enrollments.
func WithNow(now func() time.Time) Option {
	return func(g *Gallery) {
		if now != nil {
			g.now = now
		}
	}
}
