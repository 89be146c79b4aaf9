// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/adapters/mq/queue"
	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/domain/attendance"
	"github.com/okian/rollcall/internal/domain/cooldown"
	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/matcher"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Store is everything the service needs from persistence.
type Store interface {
	gallery.Store
	attendance.Emitter
	ListStudents(ctx context.Context) ([]types.Student, error)
	ListAttendance(ctx context.Context, limit int) ([]types.AttendanceEntry, error)
	Stats(ctx context.Context) (types.Totals, error)
	Close() error
}

// Service wires the gallery, matcher, cooldown cache and recorder.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    Store
	gallery  *gallery.Gallery
	matcher  matcher.Matcher
	cooldown *cooldown.Cache
	pending  *queue.InMemoryQueue
	recorder *attendance.Recorder

	// Configuration
	databasePath       string
	dimension          int
	threshold          float64
	window             time.Duration
	matcherKind        string
	cooldownShards     int
	sweepInterval      time.Duration
	pendingSize        int
	defaultLocation    string
	maxAttendanceLimit int
	now                func() time.Time

	// State
	started   bool
	ownsStore bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		databasePath:       ":memory:",
		dimension:          128,
		threshold:          0.6,
		window:             60 * time.Second,
		matcherKind:        matcher.KindLinear,
		cooldownShards:     32,
		sweepInterval:      30 * time.Second,
		pendingSize:        10_000,
		defaultLocation:    attendance.DefaultLocation,
		maxAttendanceLimit: 1000,
		now:                time.Now,
		logger:             nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens storage, loads the gallery and starts background work.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting attendance service...")

	m, err := matcher.New(s.matcherKind)
	if err != nil {
		return err
	}

	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.databasePath,
			repository.WithLogger(s.logger.Named("repository")),
			repository.WithMaxAttendanceLimit(s.maxAttendanceLimit),
		)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.databasePath))
	}

	g := gallery.New(
		gallery.WithDimension(s.dimension),
		gallery.WithStore(s.store),
		gallery.WithNow(s.now),
	)
	loaded, err := g.Load(ctx)
	if err != nil {
		s.closeOwnedStore()
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	s.gallery = g
	s.matcher = m
	// Attempts and sweeps must read the same clock or the janitor evicts live entries.
	s.cooldown = cooldown.New(
		cooldown.WithShards(s.cooldownShards),
		cooldown.WithClock(cooldown.ClockFunc(s.now)),
	)
	s.pending = queue.NewInMemoryQueue(queue.WithCapacity(s.pendingSize))
	s.recorder = attendance.NewRecorder(g, m, s.cooldown, s.store,
		attendance.WithThreshold(s.threshold),
		attendance.WithWindow(s.window),
		attendance.WithDefaultLocation(s.defaultLocation),
		attendance.WithPendingQueue(s.pending),
		attendance.WithLogger(s.logger.Named("attendance")),
	)

	if s.window > 0 {
		s.cooldown.StartJanitor(ctx, s.sweepInterval, s.window)
	}

	s.started = true
	s.logger.Info(ctx, "attendance service started",
		logger.Int("identities", loaded),
		logger.String("matcher", s.matcherKind),
		logger.Float64("threshold", s.threshold),
		logger.Duration("cooldownWindow", s.window),
		logger.Int("dimension", s.dimension),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping attendance service...")

	if s.cooldown != nil {
		_ = s.cooldown.Close()
	}

	if s.pending != nil {
		if n := s.pending.Len(); n > 0 {
			s.logger.Warn(context.Background(), "undelivered attendance events discarded on shutdown", logger.Int("pending", n))
		}
		_ = s.pending.Close()
	}

	s.closeOwnedStore()

	s.started = false
	s.logger.Info(context.Background(), "attendance service stopped")
}

func (s *Service) closeOwnedStore() {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
	}
	s.store = nil
	s.ownsStore = false
}

// running returns the recorder and gallery when the service is started.
func (s *Service) running() (*attendance.Recorder, *gallery.Gallery, Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.recorder, s.gallery, s.store, nil
}

// Enroll adds a new identity to the gallery.
func (s *Service) Enroll(ctx context.Context, e gallery.Enrollment) (types.Student, error) { //nolint:gocritic // hugeParam: Enrollment is a request value
	_, g, _, err := s.running()
	if err != nil {
		return types.Student{}, err
	}

	id, err := g.Enroll(ctx, e)
	if err != nil {
		return types.Student{}, err
	}
	identity, _ := g.Lookup(id)

	s.logger.Info(ctx, "identity enrolled",
		logger.Int64("internalID", id),
		logger.String("externalID", identity.ExternalID),
	)
	return types.Student{
		InternalID: identity.InternalID,
		StudentID:  identity.ExternalID,
		Name:       identity.DisplayName,
		Section:    identity.Section,
		Grade:      identity.Grade,
	}, nil
}

// Attempt records attendance for a presented feature vector.
func (s *Service) Attempt(ctx context.Context, vector []float64, location string) (attendance.Decision, error) {
	r, _, _, err := s.running()
	if err != nil {
		return attendance.Decision{}, err
	}
	return r.Attempt(ctx, vector, location, s.now())
}

// Redeliver retries attendance events whose delivery failed.
func (s *Service) Redeliver(ctx context.Context) (attendance.RedeliveryReport, error) {
	r, _, _, err := s.running()
	if err != nil {
		return attendance.RedeliveryReport{}, err
	}
	return r.Redeliver(ctx)
}

// Students lists enrolled students.
func (s *Service) Students(ctx context.Context) ([]types.Student, error) {
	_, _, store, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.ListStudents(ctx)
}

// Attendance lists up to limit attendance rows, newest first.
func (s *Service) Attendance(ctx context.Context, limit int) ([]types.AttendanceEntry, error) {
	_, _, store, err := s.running()
	if err != nil {
		return nil, err
	}
	if limit > s.maxAttendanceLimit {
		limit = s.maxAttendanceLimit
	}
	return store.ListAttendance(ctx, limit)
}

// Totals returns persisted student and attendance counts.
func (s *Service) Totals(ctx context.Context) (types.Totals, error) {
	_, _, store, err := s.running()
	if err != nil {
		return types.Totals{}, err
	}
	return store.Stats(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"matcher":        s.matcherKind,
		"threshold":      s.threshold,
		"cooldownWindow": s.window.String(),
		"dimension":      s.dimension,
	}

	if s.started {
		galleryLen := s.gallery.Len()
		cooldownLen := s.cooldown.Len()
		pending := s.recorder.Pending()

		stats["gallerySize"] = galleryLen
		stats["cooldownEntries"] = cooldownLen
		stats["pendingDeliveries"] = pending

		metrics.UpdateGallerySize(galleryLen)
		metrics.UpdateCooldownEntries(cooldownLen)
		metrics.UpdatePendingDeliveries(pending)
	}

	return stats
}
