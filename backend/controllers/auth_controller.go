package controllers

import (
	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

type registerRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Password   string `json:"password"`
}

// Register godoc
// @Summary Register a user
// @Description Creates the user on first contact; repeated registration updates display attributes
// @Tags auth
// @Accept json
// @Produce json
// @Param user body registerRequest true "User registration data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if req.TelegramID == 0 || req.Username == "" || req.Password == "" {
		return utils.BadRequest(c, "telegram_id, username and password are required")
	}

	// Пользователь создается при первом контакте и больше не удаляется
	var user models.User
	err := ac.DB.Where("telegram_id = ?", req.TelegramID).First(&user).Error
	switch {
	case err == nil:
		ac.DB.Model(&user).Updates(map[string]interface{}{
			"username":   req.Username,
			"first_name": req.FirstName,
			"last_name":  req.LastName,
		})
	case err == gorm.ErrRecordNotFound:
		hashedPassword, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user = models.User{
			TelegramID:   req.TelegramID,
			Username:     req.Username,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PasswordHash: string(hashedPassword),
		}
		if err := ac.DB.Create(&user).Error; err != nil {
			return utils.InternalServerError(c, "Could not create user")
		}
	default:
		return utils.InternalServerError(c, "Database error")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":          user.ID,
			"telegram_id": user.TelegramID,
			"username":    user.Username,
		},
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := ac.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}
