package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"project/backend/config"
	"project/backend/models"
	"project/backend/repository"
	"project/backend/services"
	"project/backend/utils"
)

const (
	completionDuty = "marathon_completion"
	reminderDuty   = "daily_reminder"

	deliveryTimeout  = 10 * time.Second
	narrativeTimeout = 30 * time.Second
)

// Scheduler runs the two background duties: the daily marathon completion
// sweep and the daily reminder sweep. The duties share only the repository;
// each unit of work is isolated, so one failing participant or marathon
// never aborts a sweep.
type Scheduler struct {
	Repo     *repository.Repository
	Narrator services.Narrator
	Notifier services.Notifier
	Cfg      *config.Config
	Logger   *log.Logger
}

func New(repo *repository.Repository, narrator services.Narrator, notifier services.Notifier, cfg *config.Config, logger *log.Logger) *Scheduler {
	return &Scheduler{
		Repo:     repo,
		Narrator: narrator,
		Notifier: notifier,
		Cfg:      cfg,
		Logger:   logger,
	}
}

// Start запускает обе фоновые задачи; работают до остановки процесса
func (s *Scheduler) Start() {
	go s.runCompletionLoop()
	go s.runReminderLoop()
}

// The completion loop polls hourly; the persisted marker makes each calendar
// date process at most once, so correctness does not depend on the poll
// lining up with anything.
func (s *Scheduler) runCompletionLoop() {
	for {
		if err := s.CompletionSweep(time.Now()); err != nil {
			s.Logger.Printf("completion sweep failed: %v", err)
		}
		time.Sleep(time.Hour)
	}
}

func (s *Scheduler) runReminderLoop() {
	for {
		if err := s.ReminderSweep(time.Now()); err != nil {
			s.Logger.Printf("reminder sweep failed: %v", err)
		}
		time.Sleep(time.Minute)
	}
}

// CompletionSweep processes marathons whose end date was yesterday relative
// to now: a personal report for each participant, then a group summary for
// each admin. Each date is handled exactly once.
func (s *Scheduler) CompletionSweep(now time.Time) error {
	yesterday, _ := repository.DayRange(now.AddDate(0, 0, -1))

	marker, err := s.Repo.GetSweepMarker(completionDuty)
	if err != nil {
		return err
	}
	if marker != nil && !marker.Before(yesterday) {
		return nil
	}

	marathons, err := s.Repo.ListMarathonsEndedOn(yesterday)
	if err != nil {
		return err
	}

	for i := range marathons {
		if err := s.processCompletion(&marathons[i]); err != nil {
			s.Logger.Printf("marathon %d completion failed: %v", marathons[i].ID, err)
		}
	}

	return s.Repo.SetSweepMarker(completionDuty, yesterday)
}

func (s *Scheduler) processCompletion(marathon *models.Marathon) error {
	participants, err := s.Repo.ListParticipants(marathon.ID)
	if err != nil {
		return err
	}

	threshold := services.GoalThreshold(marathon.TotalDays(), s.Cfg.GoalAchieverRoundUp)
	goalAchievers := 0

	for _, userID := range participants {
		progress, err := s.sendPersonalReport(userID, marathon)
		if err != nil {
			s.Logger.Printf("report for user %d in marathon %d failed: %v", userID, marathon.ID, err)
			continue
		}
		if progress.CompletedDays >= threshold {
			goalAchievers++
		}
	}

	return s.sendGroupSummary(marathon, len(participants), goalAchievers)
}

func (s *Scheduler) sendPersonalReport(userID uint, marathon *models.Marathon) (*services.MarathonProgress, error) {
	sessions, err := s.Repo.ListMarathonSessions(userID, marathon.ID)
	if err != nil {
		return nil, err
	}
	progress := services.Progress(marathon, sessions)
	stats := services.Aggregate(sessions)

	ctx, cancel := context.WithTimeout(context.Background(), narrativeTimeout)
	summary, err := s.Narrator.Narrative(ctx, services.KindChallengeSummary, map[string]interface{}{
		"title":          marathon.Title,
		"completed_days": progress.CompletedDays,
		"total_days":     progress.TotalDays,
		"sessions_count": progress.SessionsCount,
		"avg_rating":     fmt.Sprintf("%.1f", stats.AvgRating),
	})
	cancel()
	if err != nil {
		s.Logger.Printf("narrative generation failed for user %d: %v", userID, err)
		summary = services.FallbackFeedback(int(stats.AvgRating + 0.5))
	}

	report := fmt.Sprintf(
		"🏆 Марафон «%s» завершен!\n\n"+
			"📊 Ваши результаты:\n"+
			"• Выполнено дней: %d/%d\n"+
			"• Всего медитаций: %d\n"+
			"• Общее время: %s\n"+
			"• Средняя оценка: %.1f/10\n\n"+
			"💭 Персональная обратная связь:\n%s\n\n"+
			"Спасибо за участие! Продолжайте практиковать 🧘",
		marathon.Title,
		progress.CompletedDays, progress.TotalDays,
		progress.SessionsCount,
		utils.FormatDuration(stats.TotalDuration),
		stats.AvgRating,
		summary,
	)

	user, err := s.Repo.GetUser(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel = context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := s.Notifier.Deliver(ctx, user.TelegramID, report); err != nil {
		// Best effort: доставка не повторяется
		s.Logger.Printf("report delivery to user %d failed: %v", userID, err)
	}
	return &progress, nil
}

func (s *Scheduler) sendGroupSummary(marathon *models.Marathon, totalParticipants, goalAchievers int) error {
	activeParticipants, err := s.Repo.CountActiveParticipants(marathon.ID)
	if err != nil {
		return err
	}

	completionRate := 0.0
	if totalParticipants > 0 {
		completionRate = float64(activeParticipants) / float64(totalParticipants) * 100
	}

	summary := fmt.Sprintf(
		"📊 Итоги марафона «%s»\n\n"+
			"👥 Участники:\n"+
			"• Всего зарегистрировано: %d\n"+
			"• Активных участников: %d (%.1f%%)\n"+
			"• Достигли цели: %d\n\n"+
			"Марафон успешно завершен! 🎉",
		marathon.Title,
		totalParticipants,
		activeParticipants, completionRate,
		goalAchievers,
	)

	for _, adminID := range s.Cfg.AdminIDs {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := s.Notifier.Deliver(ctx, adminID, summary); err != nil {
			s.Logger.Printf("group summary delivery to admin %d failed: %v", adminID, err)
		}
		cancel()
	}
	return nil
}

// ReminderSweep reminds participants of active marathons who have not met
// today's goal yet. It acts only at the configured hour and at most once per
// calendar date, however often it is polled.
func (s *Scheduler) ReminderSweep(now time.Time) error {
	if now.Hour() != s.Cfg.ReminderHour {
		return nil
	}

	today, _ := repository.DayRange(now)
	marker, err := s.Repo.GetSweepMarker(reminderDuty)
	if err != nil {
		return err
	}
	if marker != nil && !marker.Before(today) {
		return nil
	}

	participations, err := s.Repo.ListActiveParticipations(now)
	if err != nil {
		return err
	}

	for _, p := range participations {
		if err := s.remind(p, now); err != nil {
			s.Logger.Printf("reminder for user %d in marathon %d failed: %v", p.UserID, p.MarathonID, err)
		}
	}

	return s.Repo.SetSweepMarker(reminderDuty, today)
}

func (s *Scheduler) remind(p repository.ActiveParticipation, now time.Time) error {
	done, err := s.Repo.CountMarathonSessionsOn(p.UserID, p.MarathonID, now)
	if err != nil {
		return err
	}
	if int(done) >= p.DailyGoal {
		return nil
	}

	remaining := p.DailyGoal - int(done)
	message := fmt.Sprintf(
		"🔔 Напоминание о марафоне «%s»\n\n"+
			"Сегодня осталось выполнить: %d медитаций\n"+
			"Не забудьте о своей практике! 🧘",
		p.Title, remaining,
	)

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := s.Notifier.Deliver(ctx, p.TelegramID, message); err != nil {
		s.Logger.Printf("reminder delivery to user %d failed: %v", p.UserID, err)
	}
	return nil
}
