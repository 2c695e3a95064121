package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"project/backend/config"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type SessionController struct {
	Sessions *services.SessionService
	AI       *services.AIService
	Cfg      *config.Config
}

func NewSessionController(sessions *services.SessionService, ai *services.AIService, cfg *config.Config) *SessionController {
	return &SessionController{Sessions: sessions, AI: ai, Cfg: cfg}
}

// Start godoc
// @Summary Start a meditation session
// @Description Opens a new session; fails if one is already active. The session is attributed to the user's current marathon, if any.
// @Tags sessions
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /sessions/start [post]
func (sc *SessionController) Start(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	session, err := sc.Sessions.Start(userID)
	if err != nil {
		if errors.Is(err, services.ErrSessionActive) {
			return utils.Conflict(c, "You already have an active session")
		}
		return utils.InternalServerError(c, "Could not start session")
	}

	return utils.Created(c, fiber.Map{
		"session_id":  session.ID,
		"start_time":  session.StartTime,
		"marathon_id": session.MarathonID,
	})
}

// End godoc
// @Summary End the active session
// @Description Closes the user's open session and returns the duration in whole minutes
// @Tags sessions
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /sessions/end [post]
func (sc *SessionController) End(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	session, err := sc.Sessions.End(userID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			return utils.NotFound(c, "No active session")
		}
		return utils.InternalServerError(c, "Could not end session")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session_id": session.ID,
		"duration":   session.Duration,
	})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// SetComment godoc
// @Summary Attach a comment to a session
// @Description Overwrites the comment on the caller's own session; foreign sessions look not found
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body commentRequest true "Comment"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /sessions/{id}/comment [put]
func (sc *SessionController) SetComment(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid session id")
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := sc.Sessions.SetComment(userID, uint(sessionID), req.Comment); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Session not found")
		}
		return utils.InternalServerError(c, "Could not save comment")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"session_id": sessionID})
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

// SetRating godoc
// @Summary Attach a rating to a session
// @Description Stores a 1-10 rating on the caller's own session and returns AI-generated feedback
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body ratingRequest true "Rating 1-10"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /sessions/{id}/rating [put]
func (sc *SessionController) SetRating(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid session id")
	}

	var req ratingRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := sc.Sessions.SetRating(userID, uint(sessionID), req.Rating); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			return utils.BadRequest(c, "Rating must be between 1 and 10")
		case errors.Is(err, services.ErrNotFound):
			return utils.NotFound(c, "Session not found")
		default:
			return utils.InternalServerError(c, "Could not save rating")
		}
	}

	feedback := sc.sessionFeedback(uint(sessionID), req.Rating)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session_id": sessionID,
		"rating":     req.Rating,
		"feedback":   feedback,
	})
}

// sessionFeedback asks the narrative generator for feedback; the AI failure
// is replaced with a fixed phrase keyed on the rating bucket and never
// surfaced to the user.
func (sc *SessionController) sessionFeedback(sessionID uint, rating int) string {
	session, err := sc.Sessions.Repo.GetSession(sessionID)
	if err != nil {
		return services.FallbackFeedback(rating)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	feedback, err := sc.AI.Narrative(ctx, services.KindSessionFeedback, map[string]interface{}{
		"duration": session.Duration,
		"rating":   rating,
		"comment":  session.Comment,
	})
	if err != nil {
		return services.FallbackFeedback(rating)
	}
	return feedback
}
