package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond
	defaultMaxLimit      = 1000
	memoryPath           = ":memory:"
)

// SQLiteStore persists identities and attendance events with GORM on SQLite.
// It backs both the gallery and the attendance recorder.
type SQLiteStore struct {
	db            atomic.Pointer[gorm.DB]
	path          string
	logger        logger.Logger
	slowThreshold time.Duration
	maxLimit      int
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates the schema. Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:          path,
		logger:        logger.Nop(),
		slowThreshold: defaultSlowThreshold,
		maxLimit:      defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != memoryPath {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newGormLogger(s.logger, s.slowThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&studentRecord{}, &attendanceRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	s.db.Store(db)
	return s, nil
}

// Close releases the database handle. It is safe to call concurrently
// with queries, which fail with ErrNotOpen once it has run.
func (s *SQLiteStore) Close() error {
	db := s.db.Swap(nil)
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) conn(ctx context.Context) (*gorm.DB, error) {
	db := s.db.Load()
	if db == nil {
		return nil, ErrNotOpen
	}
	return db.WithContext(ctx), nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}

// SaveIdentity implements gallery.Store.
func (s *SQLiteStore) SaveIdentity(ctx context.Context, identity model.Identity) error { //nolint:gocritic // hugeParam: matches gallery.Store
	defer observe("save_identity", time.Now())
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	rec := toStudentRecord(&identity)
	if err := db.Create(&rec).Error; err != nil {
		metrics.RecordErrorByComponent("repository", "save_identity")
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", gallery.ErrDuplicateExternalID, identity.ExternalID)
		}
		return fmt.Errorf("failed to save student %d: %w", identity.InternalID, err)
	}
	return nil
}

// LoadIdentities implements gallery.Store.
func (s *SQLiteStore) LoadIdentities(ctx context.Context) ([]model.Identity, error) {
	defer observe("load_identities", time.Now())
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var recs []studentRecord
	if err := db.Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	out := make([]model.Identity, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].identity())
	}
	return out, nil
}

// RecordAttendance stores one accepted event. Storing an event id that is
// already present is a no-op, so redelivery is idempotent.
func (s *SQLiteStore) RecordAttendance(ctx context.Context, ev model.AttendanceEvent) error { //nolint:gocritic // hugeParam: matches attendance.Emitter
	defer observe("record_attendance", time.Now())
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	rec := attendanceRecord{
		ID:        ev.ID,
		StudentID: ev.InternalID,
		Name:      ev.DisplayName,
		Location:  ev.Location,
		Timestamp: ev.Timestamp,
	}
	if err := db.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		metrics.RecordErrorByComponent("repository", "record_attendance")
		return fmt.Errorf("failed to record attendance %s: %w", ev.ID, err)
	}
	return nil
}

// ListStudents returns every student ordered by internal id.
func (s *SQLiteStore) ListStudents(ctx context.Context) ([]types.Student, error) {
	defer observe("list_students", time.Now())
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var recs []studentRecord
	if err := db.Select("id", "external_id", "name", "section", "grade").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	out := make([]types.Student, 0, len(recs))
	for i := range recs {
		st := types.Student{
			InternalID: recs[i].ID,
			Name:       recs[i].Name,
			Section:    recs[i].Section,
			Grade:      recs[i].Grade,
		}
		if recs[i].ExternalID != nil {
			st.StudentID = *recs[i].ExternalID
		}
		out = append(out, st)
	}
	return out, nil
}

type attendanceRow struct {
	ID         string
	Name       string
	ExternalID *string
	Section    *string
	Location   string
	Timestamp  time.Time
}

// ListAttendance returns up to limit attendance rows joined with their
// students, newest first.
func (s *SQLiteStore) ListAttendance(ctx context.Context, limit int) ([]types.AttendanceEntry, error) {
	defer observe("list_attendance", time.Now())
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []attendanceRow
	err = db.Table("attendance").
		Select("attendance.id, attendance.name, students.external_id, students.section, attendance.location, attendance.timestamp").
		Joins("LEFT JOIN students ON students.id = attendance.student_id").
		Order("attendance.timestamp DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	out := make([]types.AttendanceEntry, 0, len(rows))
	for i := range rows {
		e := types.AttendanceEntry{
			ID:        rows[i].ID,
			Name:      rows[i].Name,
			Location:  rows[i].Location,
			Timestamp: rows[i].Timestamp,
		}
		if rows[i].ExternalID != nil {
			e.StudentID = *rows[i].ExternalID
		}
		if rows[i].Section != nil {
			e.Section = *rows[i].Section
		}
		out = append(out, e)
	}
	return out, nil
}

// Stats returns the number of students and attendance rows.
func (s *SQLiteStore) Stats(ctx context.Context) (types.Totals, error) {
	defer observe("stats", time.Now())
	db, err := s.conn(ctx)
	if err != nil {
		return types.Totals{}, err
	}

	var t types.Totals
	if err := db.Model(&studentRecord{}).Count(&t.TotalStudents).Error; err != nil {
		return types.Totals{}, fmt.Errorf("failed to count students: %w", err)
	}
	if err := db.Model(&attendanceRecord{}).Count(&t.TotalLogs).Error; err != nil {
		return types.Totals{}, fmt.Errorf("failed to count attendance: %w", err)
	}
	return t, nil
}
