package services

import (
	"time"

	"project/backend/models"
	"project/backend/repository"
)

// SessionService is the session lifecycle manager: it enforces the
// one-open-session-per-user rule, attributes new sessions to an active
// marathon and computes the duration on close.
type SessionService struct {
	Repo *repository.Repository
}

func NewSessionService(repo *repository.Repository) *SessionService {
	return &SessionService{Repo: repo}
}

// Start opens a new session for the user. If the user participates in a
// marathon whose window contains today, the session is attributed to the
// earliest-starting one; the attribution is a snapshot and never changes.
func (ss *SessionService) Start(userID uint) (*models.Session, error) {
	now := time.Now()

	marathonID, err := ss.currentMarathonID(userID, now)
	if err != nil {
		return nil, err
	}

	session, created, err := ss.Repo.CreateSessionIfIdle(userID, marathonID, now)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrSessionActive
	}
	return session, nil
}

// End closes the user's open session and computes the duration as the floor
// of elapsed seconds over 60. Sub-minute sessions close with duration 0.
func (ss *SessionService) End(userID uint) (*models.Session, error) {
	session, err := ss.Repo.GetOpenSession(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	now := time.Now()
	duration := int(now.Sub(session.StartTime).Seconds()) / 60
	if duration < 0 {
		duration = 0
	}

	if err := ss.Repo.CloseSession(session.ID, now, duration); err != nil {
		return nil, err
	}
	session.EndTime = &now
	session.Duration = duration
	return session, nil
}

// SetComment перезаписывает комментарий завершенной сессии. Чужая сессия
// неотличима от несуществующей: в обоих случаях ErrNotFound.
func (ss *SessionService) SetComment(userID, sessionID uint, text string) error {
	if err := ss.Repo.SetComment(userID, sessionID, text); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SetRating перезаписывает оценку завершенной сессии
func (ss *SessionService) SetRating(userID, sessionID uint, rating int) error {
	if rating < 1 || rating > 10 {
		return ErrInvalidRating
	}
	if err := ss.Repo.SetRating(userID, sessionID, rating); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SessionCandidate is a parsed free-text session entry. It comes from the
// AI collaborator and is untrusted until Validate passes and the user
// explicitly confirms it.
type SessionCandidate struct {
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"`
	Comment   string    `json:"comment"`
	Rating    *int      `json:"rating"`
}

// Validate checks the candidate before it may be committed.
func (c *SessionCandidate) Validate(now time.Time) error {
	if c.StartTime.IsZero() || c.StartTime.After(now) {
		return ErrInvalidEntry
	}
	if c.Duration <= 0 {
		return ErrInvalidEntry
	}
	if c.Rating != nil && (*c.Rating < 1 || *c.Rating > 10) {
		return ErrInvalidRating
	}
	return nil
}

// RecordManual commits a confirmed free-text entry as an already-closed
// session. Marathon attribution is evaluated at the candidate's start date.
func (ss *SessionService) RecordManual(userID uint, candidate SessionCandidate) (*models.Session, error) {
	if err := candidate.Validate(time.Now()); err != nil {
		return nil, err
	}

	marathonID, err := ss.currentMarathonID(userID, candidate.StartTime)
	if err != nil {
		return nil, err
	}

	end := candidate.StartTime.Add(time.Duration(candidate.Duration) * time.Minute)
	session := &models.Session{
		UserID:     userID,
		StartTime:  candidate.StartTime,
		EndTime:    &end,
		Duration:   candidate.Duration,
		Comment:    candidate.Comment,
		Rating:     candidate.Rating,
		MarathonID: marathonID,
	}
	if err := ss.Repo.CreateClosedSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// currentMarathonID scans the user's joined marathons for windows containing
// day and picks the earliest-starting match.
func (ss *SessionService) currentMarathonID(userID uint, day time.Time) (*uint, error) {
	marathons, err := ss.Repo.ListUserMarathons(userID)
	if err != nil {
		return nil, err
	}

	var current *models.Marathon
	for i := range marathons {
		m := &marathons[i]
		if !m.ContainsDate(day) {
			continue
		}
		if current == nil || m.StartDate.Before(current.StartDate) {
			current = m
		}
	}
	if current == nil {
		return nil, nil
	}
	id := current.ID
	return &id, nil
}
