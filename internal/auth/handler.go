package auth

import (
	"strings"
	"time"

	"ppe-backend/internal/config"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"required,oneof=admin dispatcher warehouse consultant"`
}

// Serializes first-administrator registration on Postgres.
const adminRegistrationLock = 0x70706561646d696e

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID          uint                `json:"id"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	Email       string              `json:"email"`
	Role        models.Role         `json:"role"`
	Permissions []models.Permission `json:"permissions"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: u.Role.Permissions(),
	}
}

func setSessionCookie(c *fiber.Ctx, cfg *config.Config, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.SessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// POST /api/auth/register
func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		role := models.Role(body.Role)

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			FirstName:    strings.TrimSpace(body.FirstName),
			LastName:     strings.TrimSpace(body.LastName),
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         role,
		}
		if err := database.DB.Transaction(func(tx *gorm.DB) error {
			return registerUser(tx, &user)
		}); err != nil {
			return err
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.SessionTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}
		setSessionCookie(c, cfg, token)

		zap.L().Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "user created",
			"token":   token,
			"role":    user.Role,
			"user":    NewUserResponse(&user),
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "incorrect email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "incorrect email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.SessionTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}
		setSessionCookie(c, cfg, token)

		return c.JSON(fiber.Map{
			"token": token,
			"role":  user.Role,
			"user":  NewUserResponse(&user),
		})
	}
}

// POST /api/auth/logout
func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     cfg.SessionCookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.JSON(fiber.Map{"message": "logged out"})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}

		resp := fiber.Map{"user": NewUserResponse(&user)}

		var employee models.Employee
		if err := database.DB.Where("user_id = ?", user.ID).First(&employee).Error; err == nil {
			resp["employee"] = employee
		}

		return c.JSON(resp)
	}
}

// registerUser inserts u unless the email is taken. Only the first administrator may
// self-register; later ones are promoted by an admin.
func registerUser(tx *gorm.DB, u *models.User) error {
	if u.Role == models.RoleAdmin {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", adminRegistrationLock).Error; err != nil {
				zap.L().Error("admin registration lock failed", zap.Error(err))
				return fiber.NewError(fiber.StatusInternalServerError, "could not register user")
			}
		}
		var admins int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
			zap.L().Error("admin count failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not register user")
		}
		if admins > 0 {
			return fiber.NewError(fiber.StatusForbidden, "an administrator already exists")
		}
	}

	var existing int64
	if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&existing).Error; err != nil {
		zap.L().Error("email lookup failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not register user")
	}
	if existing > 0 {
		return &validation.Error{Fields: map[string]string{"email": "is already registered"}}
	}

	if err := tx.Create(u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return &validation.Error{Fields: map[string]string{"email": "is already registered"}}
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
	}
	return nil
}
