package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"project/backend/config"
	"project/backend/repository"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// EntryController handles free-text session entry and the AI dialogue.
// Parsed entries are untrusted: parse returns a validated candidate, and
// nothing is stored until the explicit confirm call.
type EntryController struct {
	Sessions *services.SessionService
	Repo     *repository.Repository
	AI       *services.AIService
	Cfg      *config.Config
}

func NewEntryController(sessions *services.SessionService, repo *repository.Repository, ai *services.AIService, cfg *config.Config) *EntryController {
	return &EntryController{Sessions: sessions, Repo: repo, AI: ai, Cfg: cfg}
}

type parseEntryRequest struct {
	Text string `json:"text"`
}

// Parse godoc
// @Summary Parse a free-text session description
// @Description Extracts a session candidate from text like "медитировал утром 20 минут, оценка 8"; the candidate must be confirmed before it is stored
// @Tags entries
// @Accept json
// @Produce json
// @Param request body parseEntryRequest true "Free-text description"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /entries/parse [post]
func (ec *EntryController) Parse(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, ec.Cfg); err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req parseEntryRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return utils.BadRequest(c, "text is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candidate, err := ec.AI.ParseEntry(ctx, req.Text)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEntry) || errors.Is(err, services.ErrInvalidRating) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not parse entry")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"candidate": candidate})
}

// Confirm godoc
// @Summary Confirm a parsed session entry
// @Description Commits a previously parsed candidate as a closed session
// @Tags entries
// @Accept json
// @Produce json
// @Param request body services.SessionCandidate true "Confirmed candidate"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /entries/confirm [post]
func (ec *EntryController) Confirm(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var candidate services.SessionCandidate
	if err := c.BodyParser(&candidate); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	session, err := ec.Sessions.RecordManual(userID, candidate)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEntry) || errors.Is(err, services.ErrInvalidRating) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not save session")
	}

	return utils.Created(c, fiber.Map{
		"session_id": session.ID,
		"start_time": session.StartTime,
		"duration":   session.Duration,
	})
}

type dialogueRequest struct {
	Message string `json:"message"`
}

// Dialogue godoc
// @Summary Talk to the AI instructor
// @Description Answers a free-form question using the user's practice statistics and recent dialogue history
// @Tags entries
// @Accept json
// @Produce json
// @Param request body dialogueRequest true "User message"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /dialogue [post]
func (ec *EntryController) Dialogue(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req dialogueRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return utils.BadRequest(c, "message is required")
	}

	sessions, err := ec.Repo.ListClosedSessions(userID, 0)
	if err != nil {
		return utils.InternalServerError(c, "Could not load sessions")
	}
	stats := services.Aggregate(sessions)

	ratings := make([]int, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Rating != nil {
			ratings = append(ratings, *sessions[i].Rating)
		}
	}

	// Контекст из последних сообщений диалога
	history, _ := ec.Repo.GetDialogueHistory(userID, 10)
	dialogueContext := make([]string, 0, len(history))
	for _, msg := range history {
		role := "Ассистент"
		if msg.IsUser {
			role = "Пользователь"
		}
		dialogueContext = append(dialogueContext, role+": "+msg.Content)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := ec.AI.Narrative(ctx, services.KindProgressAnalysis, map[string]interface{}{
		"sessions_count": stats.SessionsCount,
		"total_duration": stats.TotalDuration,
		"avg_rating":     stats.AvgRating,
		"streak":         services.Streak(sessions),
		"trend":          services.RatingTrend(ratings),
		"question":       strings.Join(append(dialogueContext, "Пользователь: "+req.Message), "\n"),
	})
	if err != nil {
		reply = services.FallbackFeedback(int(stats.AvgRating + 0.5))
	}

	// История диалога сохраняется best effort
	_ = ec.Repo.SaveDialogueMessage(userID, req.Message, true)
	_ = ec.Repo.SaveDialogueMessage(userID, reply, false)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"reply": reply})
}
