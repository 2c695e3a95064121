package repository

import (
	"errors"
	"time"

	"project/backend/models"

	"gorm.io/gorm"
)

// Repository is the storage contract shared by the request path and the
// background sweeps. All date scoping is done with half-open [from, to)
// ranges computed in Go so the queries behave the same on Postgres and
// the SQLite test database.
type Repository struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// DayRange returns the [start, end) bounds of the calendar day containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// CreateSessionIfIdle inserts a new open session for the user unless one is
// already open. The check and the insert run as a single conditional INSERT,
// so two near-simultaneous starts cannot both succeed. Returns the created
// session and false when an open session already existed.
func (r *Repository) CreateSessionIfIdle(userID uint, marathonID *uint, start time.Time) (*models.Session, bool, error) {
	var created bool
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			INSERT INTO sessions (created_at, updated_at, user_id, start_time, marathon_id, duration, comment)
			SELECT ?, ?, ?, ?, ?, 0, ''
			WHERE NOT EXISTS (
				SELECT 1 FROM sessions
				WHERE user_id = ? AND end_time IS NULL AND deleted_at IS NULL
			)`,
			start, start, userID, start, marathonID, userID,
		)
		if res.Error != nil {
			// Срабатывание частичного уникального индекса — тоже "уже открыта"
			if isUniqueViolation(res.Error) {
				return nil
			}
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	if err != nil || !created {
		return nil, false, err
	}

	session, err := r.GetOpenSession(userID)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// GetOpenSession returns the user's open session, or gorm.ErrRecordNotFound.
func (r *Repository) GetOpenSession(userID uint) (*models.Session, error) {
	var session models.Session
	err := r.DB.
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) GetSession(id uint) (*models.Session, error) {
	var session models.Session
	if err := r.DB.First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseSession sets the end timestamp and duration of an open session.
func (r *Repository) CloseSession(id uint, end time.Time, duration int) error {
	return r.DB.Model(&models.Session{}).
		Where("id = ? AND end_time IS NULL", id).
		Updates(map[string]interface{}{"end_time": end, "duration": duration}).Error
}

// SetComment перезаписывает комментарий сессии владельца (last write wins)
func (r *Repository) SetComment(userID, id uint, text string) error {
	return r.update(userID, id, "comment", text)
}

// SetRating перезаписывает оценку сессии владельца (last write wins)
func (r *Repository) SetRating(userID, id uint, rating int) error {
	return r.update(userID, id, "rating", rating)
}

// update touches only rows owned by userID; a foreign session id behaves
// exactly like a missing one.
func (r *Repository) update(userID, id uint, column string, value interface{}) error {
	res := r.DB.Model(&models.Session{}).Where("id = ? AND user_id = ?", id, userID).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateClosedSession stores an already-finished session (manual entry).
func (r *Repository) CreateClosedSession(session *models.Session) error {
	return r.DB.Create(session).Error
}

// ListClosedSessions returns the user's closed sessions, newest first.
func (r *Repository) ListClosedSessions(userID uint, limit int) ([]models.Session, error) {
	var sessions []models.Session
	q := r.DB.
		Where("user_id = ? AND end_time IS NOT NULL", userID).
		Order("start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&sessions).Error
	return sessions, err
}

// ListSessionsByRange returns closed sessions with start_time in [from, to).
func (r *Repository) ListSessionsByRange(userID uint, from, to time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := r.DB.
		Where("user_id = ? AND end_time IS NOT NULL AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

// ListMarathonSessions returns a user's closed sessions under one marathon.
func (r *Repository) ListMarathonSessions(userID, marathonID uint) ([]models.Session, error) {
	var sessions []models.Session
	err := r.DB.
		Where("user_id = ? AND marathon_id = ? AND end_time IS NOT NULL", userID, marathonID).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

// CountMarathonSessionsOn counts a user's closed sessions under a marathon
// on one calendar day.
func (r *Repository) CountMarathonSessionsOn(userID, marathonID uint, day time.Time) (int64, error) {
	from, to := DayRange(day)
	var count int64
	err := r.DB.Model(&models.Session{}).
		Where("user_id = ? AND marathon_id = ? AND end_time IS NOT NULL AND start_time >= ? AND start_time < ?",
			userID, marathonID, from, to).
		Count(&count).Error
	return count, err
}

func (r *Repository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) SaveDialogueMessage(userID uint, content string, isUser bool) error {
	return r.DB.Create(&models.DialogueMessage{
		UserID:  userID,
		Content: content,
		IsUser:  isUser,
	}).Error
}

// GetDialogueHistory returns the user's most recent dialogue messages in
// chronological order.
func (r *Repository) GetDialogueHistory(userID uint, limit int) ([]models.DialogueMessage, error) {
	var messages []models.DialogueMessage
	err := r.DB.
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// IsNotFound reports whether err is the store's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
