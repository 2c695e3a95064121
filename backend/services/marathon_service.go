package services

import (
	"errors"
	"time"

	"project/backend/models"
	"project/backend/repository"
)

type MarathonService struct {
	Repo *repository.Repository
}

func NewMarathonService(repo *repository.Repository) *MarathonService {
	return &MarathonService{Repo: repo}
}

// Create validates and stores a new marathon. Marathons are immutable after
// creation; there is no edit or cancel.
func (ms *MarathonService) Create(title, description string, start, end time.Time, dailyGoal int) (*models.Marathon, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}
	if end.Before(start) {
		return nil, errors.New("end date must not be before start date")
	}
	if dailyGoal < 1 {
		return nil, errors.New("daily goal must be at least 1")
	}

	marathon := &models.Marathon{
		Title:       title,
		Description: description,
		StartDate:   start,
		EndDate:     end,
		DailyGoal:   dailyGoal,
	}
	if err := ms.Repo.CreateMarathon(marathon); err != nil {
		return nil, err
	}
	return marathon, nil
}

// Join enrolls the user. Joining twice is surfaced as ErrAlreadyParticipant;
// the participation row count never grows past one per pair.
func (ms *MarathonService) Join(userID, marathonID uint) (*models.Marathon, error) {
	marathon, err := ms.Repo.GetMarathon(marathonID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrMarathonNotFound
		}
		return nil, err
	}

	created, err := ms.Repo.AddParticipant(userID, marathonID, time.Now())
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyParticipant
	}
	return marathon, nil
}

// Progress returns the user's progress snapshot for one marathon.
func (ms *MarathonService) Progress(userID, marathonID uint) (*MarathonProgress, error) {
	marathon, err := ms.Repo.GetMarathon(marathonID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrMarathonNotFound
		}
		return nil, err
	}

	sessions, err := ms.Repo.ListMarathonSessions(userID, marathonID)
	if err != nil {
		return nil, err
	}

	progress := Progress(marathon, sessions)
	return &progress, nil
}

// Active returns marathons whose window contains today.
func (ms *MarathonService) Active() ([]models.Marathon, error) {
	return ms.Repo.ListActiveMarathons(time.Now())
}

// ForUser returns the marathons a user has joined.
func (ms *MarathonService) ForUser(userID uint) ([]models.Marathon, error) {
	return ms.Repo.ListUserMarathons(userID)
}
