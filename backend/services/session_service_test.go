package services

import (
	"fmt"
	"testing"
	"time"

	"project/backend/models"
	"project/backend/repository"
	"project/backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	return repository.New(db)
}

func createUser(t *testing.T, repo *repository.Repository, telegramID int64) uint {
	t.Helper()
	user := models.User{
		TelegramID:   telegramID,
		Username:     fmt.Sprintf("user%d", telegramID),
		PasswordHash: "x",
	}
	require.NoError(t, repo.DB.Create(&user).Error)
	return user.ID
}

func TestStartAndEndSession(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 100)

	session, err := svc.Start(userID)
	require.NoError(t, err)
	assert.Nil(t, session.EndTime)
	assert.Nil(t, session.MarathonID)

	// Второй старт при открытой сессии запрещен
	_, err = svc.Start(userID)
	assert.ErrorIs(t, err, ErrSessionActive)

	closed, err := svc.End(userID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, closed.ID)
	// Сессия закрыта сразу после открытия: длительность 0 допустима
	assert.Equal(t, 0, closed.Duration)
	assert.NotNil(t, closed.EndTime)

	// После закрытия можно открыть новую
	_, err = svc.Start(userID)
	assert.NoError(t, err)
}

func TestEndWithoutActiveSession(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 101)

	_, err := svc.End(userID)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSingleOpenSessionInvariant(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 102)

	_, err := svc.Start(userID)
	require.NoError(t, err)
	_, err = svc.Start(userID)
	assert.ErrorIs(t, err, ErrSessionActive)

	var open int64
	repo.DB.Model(&models.Session{}).
		Where("user_id = ? AND end_time IS NULL", userID).
		Count(&open)
	assert.Equal(t, int64(1), open)

	// Инвариант держит и сама база: вторая открытая строка отклоняется
	// частичным уникальным индексом даже в обход условной вставки
	err = repo.DB.Create(&models.Session{UserID: userID, StartTime: time.Now()}).Error
	assert.Error(t, err)
}

func TestMarathonAttribution(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 103)

	today := time.Now()
	later := models.Marathon{
		Title:     "Поздний",
		StartDate: today.AddDate(0, 0, -1),
		EndDate:   today.AddDate(0, 0, 5),
		DailyGoal: 1,
	}
	earlier := models.Marathon{
		Title:     "Ранний",
		StartDate: today.AddDate(0, 0, -10),
		EndDate:   today.AddDate(0, 0, 5),
		DailyGoal: 1,
	}
	ended := models.Marathon{
		Title:     "Завершенный",
		StartDate: today.AddDate(0, 0, -30),
		EndDate:   today.AddDate(0, 0, -20),
		DailyGoal: 1,
	}
	require.NoError(t, repo.CreateMarathon(&later))
	require.NoError(t, repo.CreateMarathon(&earlier))
	require.NoError(t, repo.CreateMarathon(&ended))

	for _, id := range []uint{later.ID, earlier.ID, ended.ID} {
		_, err := repo.AddParticipant(userID, id, today)
		require.NoError(t, err)
	}

	session, err := svc.Start(userID)
	require.NoError(t, err)

	// Из двух активных марафонов выбирается начавшийся раньше
	require.NotNil(t, session.MarathonID)
	assert.Equal(t, earlier.ID, *session.MarathonID)
}

func TestAttributionWithoutMarathon(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 104)

	session, err := svc.Start(userID)
	require.NoError(t, err)
	assert.Nil(t, session.MarathonID)
}

func TestSetRating(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 105)

	_, err := svc.Start(userID)
	require.NoError(t, err)
	session, err := svc.End(userID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetRating(userID, session.ID, 0), ErrInvalidRating)
	assert.ErrorIs(t, svc.SetRating(userID, session.ID, 11), ErrInvalidRating)
	assert.ErrorIs(t, svc.SetRating(userID, 9999, 5), ErrNotFound)

	require.NoError(t, svc.SetRating(userID, session.ID, 7))
	// Перезапись: последняя оценка побеждает
	require.NoError(t, svc.SetRating(userID, session.ID, 9))

	stored, err := repo.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 9, *stored.Rating)
}

func TestMutationsScopedToOwner(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	ownerID := createUser(t, repo, 110)
	strangerID := createUser(t, repo, 111)

	_, err := svc.Start(ownerID)
	require.NoError(t, err)
	session, err := svc.End(ownerID)
	require.NoError(t, err)

	// Чужая сессия неотличима от несуществующей
	assert.ErrorIs(t, svc.SetRating(strangerID, session.ID, 1), ErrNotFound)
	assert.ErrorIs(t, svc.SetComment(strangerID, session.ID, "чужой текст"), ErrNotFound)

	require.NoError(t, svc.SetRating(ownerID, session.ID, 8))
	require.NoError(t, svc.SetComment(ownerID, session.ID, "своя запись"))

	stored, err := repo.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 8, *stored.Rating)
	assert.Equal(t, "своя запись", stored.Comment)
}

func TestSetComment(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 106)

	_, err := svc.Start(userID)
	require.NoError(t, err)
	session, err := svc.End(userID)
	require.NoError(t, err)

	require.NoError(t, svc.SetComment(userID, session.ID, "спокойная практика"))
	require.NoError(t, svc.SetComment(userID, session.ID, "исправленный комментарий"))

	stored, err := repo.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "исправленный комментарий", stored.Comment)

	assert.ErrorIs(t, svc.SetComment(userID, 9999, "x"), ErrNotFound)
}

func TestRecordManual(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 107)

	rating := 8
	start := time.Now().Add(-2 * time.Hour)
	session, err := svc.RecordManual(userID, SessionCandidate{
		StartTime: start,
		Duration:  20,
		Comment:   "утренняя практика",
		Rating:    &rating,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, session.Duration)
	assert.NotNil(t, session.EndTime)

	sessions, err := repo.ListClosedSessions(userID, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestRecordManualValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSessionService(repo)
	userID := createUser(t, repo, 108)

	_, err := svc.RecordManual(userID, SessionCandidate{
		StartTime: time.Now().Add(time.Hour), // будущее
		Duration:  20,
	})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = svc.RecordManual(userID, SessionCandidate{
		StartTime: time.Now().Add(-time.Hour),
		Duration:  0,
	})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	bad := 11
	_, err = svc.RecordManual(userID, SessionCandidate{
		StartTime: time.Now().Add(-time.Hour),
		Duration:  15,
		Rating:    &bad,
	})
	assert.ErrorIs(t, err, ErrInvalidRating)
}
