package controllers

import (
	"errors"
	"strconv"
	"time"

	"project/backend/config"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type MarathonController struct {
	Marathons *services.MarathonService
	Cfg       *config.Config
}

func NewMarathonController(marathons *services.MarathonService, cfg *config.Config) *MarathonController {
	return &MarathonController{Marathons: marathons, Cfg: cfg}
}

// GetActive godoc
// @Summary List active marathons
// @Description Returns marathons whose window contains today
// @Tags marathons
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /marathons/active [get]
func (mc *MarathonController) GetActive(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, mc.Cfg); err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	marathons, err := mc.Marathons.Active()
	if err != nil {
		return utils.InternalServerError(c, "Could not load marathons")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"marathons": marathons})
}

// Join godoc
// @Summary Join a marathon
// @Description Enrolls the user; joining twice is rejected
// @Tags marathons
// @Produce json
// @Param id path int true "Marathon ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /marathons/{id}/join [post]
func (mc *MarathonController) Join(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, mc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	marathonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid marathon id")
	}

	marathon, err := mc.Marathons.Join(userID, uint(marathonID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMarathonNotFound):
			return utils.NotFound(c, "Marathon not found")
		case errors.Is(err, services.ErrAlreadyParticipant):
			return utils.Conflict(c, "You already joined this marathon")
		default:
			return utils.InternalServerError(c, "Could not join marathon")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"marathon_id": marathon.ID,
		"title":       marathon.Title,
		"daily_goal":  marathon.DailyGoal,
		"end_date":    marathon.EndDate,
	})
}

// GetProgress godoc
// @Summary Marathon progress
// @Description Returns the caller's progress snapshot for one marathon
// @Tags marathons
// @Produce json
// @Param id path int true "Marathon ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /marathons/{id}/progress [get]
func (mc *MarathonController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, mc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	marathonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid marathon id")
	}

	progress, err := mc.Marathons.Progress(userID, uint(marathonID))
	if err != nil {
		if errors.Is(err, services.ErrMarathonNotFound) {
			return utils.NotFound(c, "Marathon not found")
		}
		return utils.InternalServerError(c, "Could not compute progress")
	}

	return utils.Success(c, fiber.StatusOK, progress)
}

type createMarathonRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	EndDate     string `json:"end_date"`   // YYYY-MM-DD
	DailyGoal   int    `json:"daily_goal"`
}

// Create godoc
// @Summary Create a marathon
// @Description Admin only. Marathons are immutable after creation.
// @Tags marathons
// @Accept json
// @Produce json
// @Param request body createMarathonRequest true "Marathon definition"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/marathons [post]
func (mc *MarathonController) Create(c *fiber.Ctx) error {
	var req createMarathonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	if err != nil {
		return utils.BadRequest(c, "Invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
	if err != nil {
		return utils.BadRequest(c, "Invalid end_date, expected YYYY-MM-DD")
	}

	marathon, err := mc.Marathons.Create(req.Title, req.Description, start, end, req.DailyGoal)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	return utils.Created(c, fiber.Map{
		"marathon_id": marathon.ID,
		"title":       marathon.Title,
		"start_date":  marathon.StartDate,
		"end_date":    marathon.EndDate,
		"daily_goal":  marathon.DailyGoal,
	})
}
