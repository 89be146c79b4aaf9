// Package repository persists students and attendance in SQLite.
package repository

import (
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// studentRecord is the students table row.
type studentRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false"`
	ExternalID *string   `gorm:"uniqueIndex"`
	Name       string    `gorm:"not null"`
	Section    string    `gorm:"size:64"`
	Grade      string    `gorm:"size:32"`
	Encoding   []float64 `gorm:"serializer:json;not null"`
	CreatedAt  time.Time
}

func (studentRecord) TableName() string { return "students" }

// attendanceRecord is the attendance table row.
type attendanceRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	StudentID int64     `gorm:"index;not null"`
	Name      string    `gorm:"not null"`
	Location  string    `gorm:"not null;default:Main"`
	Timestamp time.Time `gorm:"index;not null"`
}

func (attendanceRecord) TableName() string { return "attendance" }

func toStudentRecord(id *model.Identity) studentRecord {
	rec := studentRecord{
		ID:        id.InternalID,
		Name:      id.DisplayName,
		Section:   id.Section,
		Grade:     id.Grade,
		Encoding:  model.CloneVector(id.Vector),
		CreatedAt: id.EnrolledAt,
	}
	if id.ExternalID != "" {
		ext := id.ExternalID
		rec.ExternalID = &ext
	}
	return rec
}

func (r *studentRecord) identity() model.Identity {
	id := model.Identity{
		InternalID:  r.ID,
		DisplayName: r.Name,
		Section:     r.Section,
		Grade:       r.Grade,
		Vector:      r.Encoding,
		EnrolledAt:  r.CreatedAt,
	}
	if r.ExternalID != nil {
		id.ExternalID = *r.ExternalID
	}
	return id
}
