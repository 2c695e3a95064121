package services

import (
	"testing"
	"time"

	"project/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMarathonValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewMarathonService(repo)

	start := day(2025, time.June, 1)

	_, err := svc.Create("", "desc", start, start.AddDate(0, 0, 7), 1)
	assert.Error(t, err)

	_, err = svc.Create("Марафон", "desc", start, start.AddDate(0, 0, -1), 1)
	assert.Error(t, err)

	_, err = svc.Create("Марафон", "desc", start, start.AddDate(0, 0, 7), 0)
	assert.Error(t, err)

	m, err := svc.Create("Марафон", "desc", start, start, 1)
	require.NoError(t, err)
	// Однодневный марафон допустим: конец включительно
	assert.Equal(t, 1, m.TotalDays())
}

func TestTotalDaysAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// Окно содержит весенний перевод часов (9 марта 2025): в часах это 743,
	// но календарных дней по-прежнему 31
	m := models.Marathon{
		StartDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, loc),
		EndDate:   time.Date(2025, time.March, 31, 0, 0, 0, 0, loc),
	}
	assert.Equal(t, 31, m.TotalDays())
}

func TestJoinMarathon(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewMarathonService(repo)
	userID := createUser(t, repo, 200)

	marathon, err := svc.Create("Майский", "десять дней практики",
		day(2025, time.May, 1), day(2025, time.May, 10), 2)
	require.NoError(t, err)

	joined, err := svc.Join(userID, marathon.ID)
	require.NoError(t, err)
	assert.Equal(t, marathon.ID, joined.ID)

	// Повторное вступление отклоняется, строка участия остается одна
	_, err = svc.Join(userID, marathon.ID)
	assert.ErrorIs(t, err, ErrAlreadyParticipant)

	var count int64
	repo.DB.Model(&models.MarathonParticipant{}).
		Where("user_id = ? AND marathon_id = ?", userID, marathon.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestJoinMissingMarathon(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewMarathonService(repo)
	userID := createUser(t, repo, 201)

	_, err := svc.Join(userID, 12345)
	assert.ErrorIs(t, err, ErrMarathonNotFound)
}

func TestMarathonProgressThroughService(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewMarathonService(repo)
	sessions := NewSessionService(repo)
	userID := createUser(t, repo, 202)

	today := time.Now()
	marathon, err := svc.Create("Текущий", "",
		today.AddDate(0, 0, -2), today.AddDate(0, 0, 4), 1)
	require.NoError(t, err)

	_, err = svc.Join(userID, marathon.ID)
	require.NoError(t, err)

	// Закрытая сессия внутри окна марафона
	_, err = sessions.Start(userID)
	require.NoError(t, err)
	_, err = sessions.End(userID)
	require.NoError(t, err)

	progress, err := svc.Progress(userID, marathon.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, progress.TotalDays)
	assert.Equal(t, 1, progress.CompletedDays)
	assert.Equal(t, 1, progress.SessionsCount)
}

func TestActiveMarathons(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewMarathonService(repo)

	today := time.Now()
	_, err := svc.Create("Активный", "", today.AddDate(0, 0, -1), today.AddDate(0, 0, 1), 1)
	require.NoError(t, err)
	_, err = svc.Create("Прошедший", "", today.AddDate(0, 0, -20), today.AddDate(0, 0, -10), 1)
	require.NoError(t, err)

	active, err := svc.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Активный", active[0].Title)
}
