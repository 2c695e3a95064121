package services

import (
	"sort"
	"time"

	"project/backend/models"
)

// Pure statistics over lists of closed sessions. Nothing in this file
// touches the database, so every function is total and directly testable.

// AggregateStats сводная статистика по завершенным сессиям
type AggregateStats struct {
	SessionsCount int     `json:"sessions_count"`
	TotalDuration int     `json:"total_duration"`
	AvgRating     float64 `json:"avg_rating"`
	ActiveDays    int     `json:"active_days"`
}

// MarathonProgress прогресс пользователя в марафоне
type MarathonProgress struct {
	TotalDays     int `json:"total_days"`
	CompletedDays int `json:"completed_days"`
	SessionsCount int `json:"sessions_count"`
	DailyGoal     int `json:"daily_goal"`
}

// DayStats статистика за один календарный день
type DayStats struct {
	Date          time.Time `json:"date"`
	SessionsCount int       `json:"sessions_count"`
	TotalDuration int       `json:"total_duration"`
	AvgRating     float64   `json:"avg_rating"`
}

// Aggregate computes count, total duration, mean rating and distinct active
// days. The mean is 0 for an empty list or when no session carries a rating.
func Aggregate(sessions []models.Session) AggregateStats {
	stats := AggregateStats{}
	days := make(map[time.Time]struct{})

	ratingSum := 0
	ratingCount := 0
	for _, s := range sessions {
		stats.SessionsCount++
		stats.TotalDuration += s.Duration
		days[dayOf(s.StartTime)] = struct{}{}
		if s.Rating != nil {
			ratingSum += *s.Rating
			ratingCount++
		}
	}
	stats.ActiveDays = len(days)
	if ratingCount > 0 {
		stats.AvgRating = float64(ratingSum) / float64(ratingCount)
	}
	return stats
}

// Progress computes the marathon progress snapshot. TotalDays comes from the
// marathon dates alone, so it is defined even with zero sessions.
func Progress(marathon *models.Marathon, sessions []models.Session) MarathonProgress {
	progress := MarathonProgress{
		TotalDays: marathon.TotalDays(),
		DailyGoal: marathon.DailyGoal,
	}

	perDay := make(map[time.Time]int)
	for _, s := range sessions {
		day := dayOf(s.StartTime)
		if !marathon.ContainsDate(day) {
			continue
		}
		perDay[day]++
		progress.SessionsCount++
	}
	for _, count := range perDay {
		if count >= marathon.DailyGoal {
			progress.CompletedDays++
		}
	}
	return progress
}

// Streak counts consecutive calendar days with at least one session, ending
// at the most recent day. The first gap of more than one day stops the count.
func Streak(sessions []models.Session) int {
	if len(sessions) == 0 {
		return 0
	}

	seen := make(map[time.Time]struct{})
	for _, s := range sessions {
		seen[dayOf(s.StartTime)] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			streak++
		} else {
			break
		}
	}
	return streak
}

// Rating trend classifications.
const (
	TrendRising       = "rising"
	TrendFalling      = "falling"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient data"
)

// trendThreshold is the minimum half-to-half mean delta (on the 1-10 scale)
// treated as a real change.
const trendThreshold = 0.5

// RatingTrend classifies a chronologically ordered rating series by comparing
// the mean of its first and second halves; the second half takes the extra
// element on odd counts.
func RatingTrend(ratings []int) string {
	if len(ratings) < 2 {
		return TrendInsufficient
	}

	mid := len(ratings) / 2
	first := mean(ratings[:mid])
	second := mean(ratings[mid:])

	switch delta := second - first; {
	case delta > trendThreshold:
		return TrendRising
	case delta < -trendThreshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

// GroupByDay buckets closed sessions by the calendar date of their start
// time, returning per-day stats sorted by date.
func GroupByDay(sessions []models.Session) []DayStats {
	buckets := make(map[time.Time][]models.Session)
	for _, s := range sessions {
		day := dayOf(s.StartTime)
		buckets[day] = append(buckets[day], s)
	}

	result := make([]DayStats, 0, len(buckets))
	for day, group := range buckets {
		agg := Aggregate(group)
		result = append(result, DayStats{
			Date:          day,
			SessionsCount: agg.SessionsCount,
			TotalDuration: agg.TotalDuration,
			AvgRating:     agg.AvgRating,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

// GoalThreshold returns the completed-day count needed to be counted as a
// goal achiever: 80% of the marathon's days, floored by default and rounded
// up when roundUp is set.
func GoalThreshold(totalDays int, roundUp bool) int {
	raw := float64(totalDays) * 0.8
	threshold := int(raw)
	if roundUp && raw > float64(threshold) {
		threshold++
	}
	return threshold
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
