package repository

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger routes GORM diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSlowQueryThreshold sets the duration above which queries are logged as slow.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.slowThreshold = d
		}
	}
}

// WithMaxAttendanceLimit caps how many rows ListAttendance returns.
func WithMaxAttendanceLimit(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
