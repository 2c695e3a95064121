package repository

import (
	"errors"
	"strings"
	"time"

	"project/backend/models"

	"gorm.io/gorm"
)

func (r *Repository) CreateMarathon(m *models.Marathon) error {
	return r.DB.Create(m).Error
}

func (r *Repository) GetMarathon(id uint) (*models.Marathon, error) {
	var marathon models.Marathon
	if err := r.DB.First(&marathon, id).Error; err != nil {
		return nil, err
	}
	return &marathon, nil
}

// ListActiveMarathons returns marathons whose window contains the given day,
// ordered by start date.
func (r *Repository) ListActiveMarathons(today time.Time) ([]models.Marathon, error) {
	dayStart, dayEnd := DayRange(today)
	var marathons []models.Marathon
	err := r.DB.
		Where("start_date < ? AND end_date >= ?", dayEnd, dayStart).
		Order("start_date ASC").
		Find(&marathons).Error
	return marathons, err
}

// ListMarathonsEndedOn returns marathons whose end date falls on the given
// calendar day.
func (r *Repository) ListMarathonsEndedOn(day time.Time) ([]models.Marathon, error) {
	from, to := DayRange(day)
	var marathons []models.Marathon
	err := r.DB.
		Where("end_date >= ? AND end_date < ?", from, to).
		Find(&marathons).Error
	return marathons, err
}

// ListUserMarathons returns the marathons a user has joined, newest first.
func (r *Repository) ListUserMarathons(userID uint) ([]models.Marathon, error) {
	var marathons []models.Marathon
	err := r.DB.
		Joins("JOIN marathon_participants mp ON mp.marathon_id = marathons.id").
		Where("mp.user_id = ? AND mp.deleted_at IS NULL", userID).
		Order("marathons.start_date DESC").
		Find(&marathons).Error
	return marathons, err
}

// AddParticipant enrolls the user; returns false when the pair already exists.
func (r *Repository) AddParticipant(userID, marathonID uint, now time.Time) (bool, error) {
	exists, err := r.IsParticipant(userID, marathonID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	err = r.DB.Create(&models.MarathonParticipant{
		UserID:     userID,
		MarathonID: marathonID,
		JoinedAt:   now,
	}).Error
	if err != nil {
		// Уникальный индекс срабатывает при гонке двух одновременных вступлений
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Repository) IsParticipant(userID, marathonID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&models.MarathonParticipant{}).
		Where("user_id = ? AND marathon_id = ?", userID, marathonID).
		Count(&count).Error
	return count > 0, err
}

// ListParticipants returns the user ids enrolled in a marathon.
func (r *Repository) ListParticipants(marathonID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&models.MarathonParticipant{}).
		Where("marathon_id = ?", marathonID).
		Order("joined_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// CountActiveParticipants counts distinct users with at least one closed
// session under the marathon.
func (r *Repository) CountActiveParticipants(marathonID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Session{}).
		Where("marathon_id = ? AND end_time IS NOT NULL", marathonID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// ActiveParticipation pairs an enrolled user with an active marathon; used
// by the reminder sweep.
type ActiveParticipation struct {
	UserID     uint
	TelegramID int64
	MarathonID uint
	Title      string
	DailyGoal  int
}

// ListActiveParticipations returns every (user, marathon) pair where the
// marathon window contains the given day.
func (r *Repository) ListActiveParticipations(today time.Time) ([]ActiveParticipation, error) {
	dayStart, dayEnd := DayRange(today)
	var rows []ActiveParticipation
	err := r.DB.Model(&models.MarathonParticipant{}).
		Select("marathon_participants.user_id AS user_id, users.telegram_id AS telegram_id, marathons.id AS marathon_id, marathons.title AS title, marathons.daily_goal AS daily_goal").
		Joins("JOIN marathons ON marathons.id = marathon_participants.marathon_id").
		Joins("JOIN users ON users.id = marathon_participants.user_id").
		Where("marathons.start_date < ? AND marathons.end_date >= ?", dayEnd, dayStart).
		Scan(&rows).Error
	return rows, err
}

// GetSweepMarker returns the last date processed by a scheduler duty, or nil.
func (r *Repository) GetSweepMarker(duty string) (*time.Time, error) {
	var marker models.SweepMarker
	err := r.DB.Where("duty = ?", duty).First(&marker).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &marker.LastDate, nil
}

// SetSweepMarker records the last date processed by a scheduler duty.
func (r *Repository) SetSweepMarker(duty string, date time.Time) error {
	var marker models.SweepMarker
	err := r.DB.Where("duty = ?", duty).First(&marker).Error
	if err != nil {
		if IsNotFound(err) {
			return r.DB.Create(&models.SweepMarker{Duty: duty, LastDate: date}).Error
		}
		return err
	}
	return r.DB.Model(&marker).Update("last_date", date).Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
