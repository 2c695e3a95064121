package models

import (
	"time"

	"gorm.io/gorm"
)

// Marathon is a time-boxed group challenge with a daily session goal.
// Dates are day-granular; EndDate is inclusive. Immutable after creation.
type Marathon struct {
	gorm.Model
	Title       string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`
	StartDate   time.Time
	EndDate     time.Time
	DailyGoal   int `gorm:"not null;default:1"`
}

// ContainsDate reports whether day falls inside [StartDate, EndDate],
// compared at date granularity.
func (m *Marathon) ContainsDate(day time.Time) bool {
	d := truncateToDay(day)
	return !d.Before(truncateToDay(m.StartDate)) && !d.After(truncateToDay(m.EndDate))
}

// TotalDays is the inclusive day span of the marathon window. Counted by
// calendar-day steps, not clock hours, so a DST transition inside the window
// does not shift the result.
func (m *Marathon) TotalDays() int {
	start := truncateToDay(m.StartDate)
	end := truncateToDay(m.EndDate)
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

type MarathonParticipant struct {
	gorm.Model
	UserID     uint `gorm:"not null;uniqueIndex:idx_marathon_user"`
	MarathonID uint `gorm:"not null;uniqueIndex:idx_marathon_user"`
	JoinedAt   time.Time
}

// SweepMarker persists the last calendar date processed by a scheduler
// duty, so a sweep never reprocesses a date it already handled.
type SweepMarker struct {
	gorm.Model
	Duty     string `gorm:"unique;not null"`
	LastDate time.Time
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
