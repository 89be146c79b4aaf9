package service

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore replaces the SQLite store opened by Start.
func WithStore(store Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDatabasePath sets the SQLite file opened by Start.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.databasePath = path
		}
	}
}

// WithDimension sets the enforced feature vector dimension.
func WithDimension(dim int) Option {
	return func(s *Service) {
		if dim > 0 {
			s.dimension = dim
		}
	}
}

// WithThreshold sets the maximum accepted match distance.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 {
			s.threshold = t
		}
	}
}

// WithCooldownWindow sets the repeat-attendance window. Zero disables it.
func WithCooldownWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.window = d
		}
	}
}

// WithMatcher selects the matcher kind: linear or hnsw.
func WithMatcher(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.matcherKind = kind
		}
	}
}

// WithCooldownShards sets the number of cooldown cache shards.
func WithCooldownShards(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cooldownShards = n
		}
	}
}

// WithSweepInterval sets how often expired cooldown entries are evicted.
// Zero disables the janitor.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.sweepInterval = d
		}
	}
}

// WithPendingQueueSize bounds events parked after a delivery failure.
func WithPendingQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pendingSize = n
		}
	}
}

// WithDefaultLocation sets the location used when an attempt names none.
func WithDefaultLocation(loc string) Option {
	return func(s *Service) {
		if loc != "" {
			s.defaultLocation = loc
		}
	}
}

// WithMaxAttendanceLimit caps the attendance log page size.
func WithMaxAttendanceLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttendanceLimit = n
		}
	}
}

// WithClock overrides the time source used to stamp attempts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
