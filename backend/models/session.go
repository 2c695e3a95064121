package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is one timed practice interval. EndTime is nil while the session
// is still running; Duration (whole minutes) is set exactly once at close.
type Session struct {
	gorm.Model
	UserID     uint `gorm:"index;not null"`
	StartTime  time.Time
	EndTime    *time.Time
	Duration   int
	Comment    string
	Rating     *int  // 1-10
	MarathonID *uint `gorm:"index"` // snapshot at creation, never reassigned
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndTime == nil
}
