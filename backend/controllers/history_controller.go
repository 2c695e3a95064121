package controllers

import (
	"strconv"
	"time"

	"project/backend/config"
	"project/backend/repository"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type HistoryController struct {
	Repo      *repository.Repository
	Marathons *services.MarathonService
	Cfg       *config.Config
}

func NewHistoryController(repo *repository.Repository, marathons *services.MarathonService, cfg *config.Config) *HistoryController {
	return &HistoryController{Repo: repo, Marathons: marathons, Cfg: cfg}
}

// GetProgress godoc
// @Summary Overall progress
// @Description Returns all-time stats, current streak, rating trend and per-marathon progress
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (hc *HistoryController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, hc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	sessions, err := hc.Repo.ListClosedSessions(userID, 0)
	if err != nil {
		return utils.InternalServerError(c, "Could not load sessions")
	}

	stats := services.Aggregate(sessions)
	streak := services.Streak(sessions)

	// Тренд считается по хронологически упорядоченным оценкам
	ratings := make([]int, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Rating != nil {
			ratings = append(ratings, *sessions[i].Rating)
		}
	}
	trend := services.RatingTrend(ratings)

	marathons, err := hc.Marathons.ForUser(userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load marathons")
	}

	marathonProgress := make([]fiber.Map, 0, len(marathons))
	for _, m := range marathons {
		progress, err := hc.Marathons.Progress(userID, m.ID)
		if err != nil {
			continue
		}
		marathonProgress = append(marathonProgress, fiber.Map{
			"marathon_id": m.ID,
			"title":       m.Title,
			"progress":    progress,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"stats":     stats,
		"streak":    streak,
		"trend":     trend,
		"marathons": marathonProgress,
	})
}

// GetHistory godoc
// @Summary Session history
// @Description Returns the most recent sessions plus 30-day stats
// @Tags history
// @Produce json
// @Param limit query int false "Max sessions to return (default 15)"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /history [get]
func (hc *HistoryController) GetHistory(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, hc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	limit := c.QueryInt("limit", 15)

	recent, err := hc.Repo.ListClosedSessions(userID, limit)
	if err != nil {
		return utils.InternalServerError(c, "Could not load sessions")
	}

	now := time.Now()
	monthly, err := hc.Repo.ListSessionsByRange(userID, now.AddDate(0, 0, -30), now)
	if err != nil {
		return utils.InternalServerError(c, "Could not load sessions")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"sessions":      recent,
		"monthly_stats": services.Aggregate(monthly),
	})
}

// GetMonth godoc
// @Summary Calendar month breakdown
// @Description Returns per-day stats for one month, for the calendar view
// @Tags history
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month 1-12"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /history/month/{year}/{month} [get]
func (hc *HistoryController) GetMonth(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, hc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return utils.BadRequest(c, "Invalid year")
	}
	month, err := strconv.Atoi(c.Params("month"))
	if err != nil || month < 1 || month > 12 {
		return utils.BadRequest(c, "Invalid month")
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	sessions, err := hc.Repo.ListSessionsByRange(userID, from, to)
	if err != nil {
		return utils.InternalServerError(c, "Could not load sessions")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"stats": services.Aggregate(sessions),
		"days":  services.GroupByDay(sessions),
	})
}

// GetDay godoc
// @Summary Daily detail
// @Description Returns sessions and stats for one calendar date
// @Tags history
// @Produce json
// @Param date path string true "Date YYYY-MM-DD"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /history/day/{date} [get]
func (hc *HistoryController) GetDay(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, hc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	day, err := time.ParseInLocation("2006-01-02", c.Params("date"), time.Local)
	if err != nil {
		return utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
	}

	from, to := repository.DayRange(day)
	sessions, err := hc.Repo.ListSessionsByRange(userID, from, to)
	if err != nil {
		return utils.InternalServerError(c, "Could not load sessions")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"date":     day.Format("2006-01-02"),
		"stats":    services.Aggregate(sessions),
		"sessions": sessions,
	})
}
