package services

import "errors"

var (
	// ErrSessionActive — у пользователя уже есть открытая сессия
	ErrSessionActive = errors.New("session already active")
	// ErrNoActiveSession — нет открытой сессии для завершения
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidRating — оценка вне диапазона [1,10]
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
	// ErrAlreadyParticipant — повторное вступление в марафон
	ErrAlreadyParticipant = errors.New("already a marathon participant")
	// ErrMarathonNotFound — марафон не найден
	ErrMarathonNotFound = errors.New("marathon not found")
	// ErrNotFound — сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrInvalidEntry — разобранная запись не прошла валидацию
	ErrInvalidEntry = errors.New("invalid session entry")
)
