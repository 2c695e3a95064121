package services

import (
	"testing"
	"time"

	"project/backend/models"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.Local)
}

func closedSession(start time.Time, duration int, rating int) models.Session {
	end := start.Add(time.Duration(duration) * time.Minute)
	s := models.Session{StartTime: start, EndTime: &end, Duration: duration}
	if rating > 0 {
		s.Rating = &rating
	}
	return s
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)

	assert.Equal(t, 0, stats.SessionsCount)
	assert.Equal(t, 0, stats.TotalDuration)
	assert.Equal(t, 0.0, stats.AvgRating)
	assert.Equal(t, 0, stats.ActiveDays)
}

func TestAggregate(t *testing.T) {
	sessions := []models.Session{
		closedSession(day(2025, time.May, 1).Add(8*time.Hour), 20, 8),
		closedSession(day(2025, time.May, 1).Add(20*time.Hour), 10, 6),
		closedSession(day(2025, time.May, 2).Add(9*time.Hour), 30, 0), // без оценки
	}

	stats := Aggregate(sessions)

	assert.Equal(t, 3, stats.SessionsCount)
	assert.Equal(t, 60, stats.TotalDuration)
	assert.Equal(t, 7.0, stats.AvgRating) // среднее только по оцененным
	assert.Equal(t, 2, stats.ActiveDays)
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name string
		days []int // дни мая
		want int
	}{
		{"consecutive run with gap", []int{1, 2, 3, 5}, 3},
		{"gap after most recent", []int{1, 3}, 1},
		{"single day", []int{7}, 1},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sessions []models.Session
			for _, d := range tt.days {
				sessions = append(sessions, closedSession(day(2025, time.May, d).Add(10*time.Hour), 15, 7))
			}
			assert.Equal(t, tt.want, Streak(sessions))
		})
	}
}

func TestStreakMultipleSessionsSameDay(t *testing.T) {
	sessions := []models.Session{
		closedSession(day(2025, time.May, 3).Add(8*time.Hour), 10, 7),
		closedSession(day(2025, time.May, 3).Add(20*time.Hour), 10, 7),
		closedSession(day(2025, time.May, 2).Add(9*time.Hour), 10, 7),
	}
	assert.Equal(t, 2, Streak(sessions))
}

func TestProgress(t *testing.T) {
	marathon := &models.Marathon{
		StartDate: day(2025, time.May, 1),
		EndDate:   day(2025, time.May, 10),
		DailyGoal: 2,
	}

	sessions := []models.Session{
		// 1 мая: цель выполнена
		closedSession(day(2025, time.May, 1).Add(8*time.Hour), 15, 7),
		closedSession(day(2025, time.May, 1).Add(20*time.Hour), 15, 8),
		// 2 мая: только одна сессия
		closedSession(day(2025, time.May, 2).Add(8*time.Hour), 15, 7),
		// вне окна марафона — не учитывается
		closedSession(day(2025, time.April, 30).Add(8*time.Hour), 15, 7),
	}

	progress := Progress(marathon, sessions)

	assert.Equal(t, 10, progress.TotalDays)
	assert.Equal(t, 1, progress.CompletedDays)
	assert.Equal(t, 3, progress.SessionsCount)
	assert.LessOrEqual(t, progress.CompletedDays, progress.TotalDays)
}

func TestProgressNoSessions(t *testing.T) {
	marathon := &models.Marathon{
		StartDate: day(2025, time.May, 1),
		EndDate:   day(2025, time.May, 7),
		DailyGoal: 1,
	}

	progress := Progress(marathon, nil)

	assert.Equal(t, 7, progress.TotalDays)
	assert.Equal(t, 0, progress.CompletedDays)
	assert.Equal(t, 0, progress.SessionsCount)
}

func TestRatingTrend(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    string
	}{
		{"rising", []int{4, 5, 9, 10}, TrendRising},
		{"stable", []int{7, 7, 7, 7}, TrendStable},
		{"falling", []int{9, 10, 4, 5}, TrendFalling},
		{"odd count second half larger", []int{5, 8, 8, 8, 8}, TrendRising},
		{"within threshold", []int{7, 7, 7, 8}, TrendStable},
		{"one rating", []int{6}, TrendInsufficient},
		{"empty", nil, TrendInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RatingTrend(tt.ratings))
		})
	}
}

func TestGoalThreshold(t *testing.T) {
	// 10 дней: 80% = 8 в обе стороны
	assert.Equal(t, 8, GoalThreshold(10, false))
	assert.Equal(t, 8, GoalThreshold(10, true))

	// 7 дней: 5.6 — пол или потолок в зависимости от политики
	assert.Equal(t, 5, GoalThreshold(7, false))
	assert.Equal(t, 6, GoalThreshold(7, true))
}

func TestGroupByDay(t *testing.T) {
	sessions := []models.Session{
		closedSession(day(2025, time.May, 2).Add(9*time.Hour), 10, 6),
		closedSession(day(2025, time.May, 1).Add(8*time.Hour), 20, 8),
		closedSession(day(2025, time.May, 1).Add(21*time.Hour), 10, 10),
	}

	days := GroupByDay(sessions)

	assert.Len(t, days, 2)
	assert.Equal(t, day(2025, time.May, 1), days[0].Date)
	assert.Equal(t, 2, days[0].SessionsCount)
	assert.Equal(t, 30, days[0].TotalDuration)
	assert.Equal(t, 9.0, days[0].AvgRating)
	assert.Equal(t, day(2025, time.May, 2), days[1].Date)
	assert.Equal(t, 1, days[1].SessionsCount)
}
