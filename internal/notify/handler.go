package notify

import (
	"ppe-backend/internal/auth"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateNotificationRequest struct {
	RecipientID uint   `json:"recipient_id" validate:"required"`
	Type        string `json:"type" validate:"required,max=40"`
	Message     string `json:"message" validate:"required"`
}

// GET /api/notifications
func ListNotificationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var notifications []models.Notification
		if err := database.DB.
			Where("recipient_id = ?", userID).
			Order("sent_at DESC, id DESC").
			Find(&notifications).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list notifications")
		}

		return c.JSON(fiber.Map{"notifications": notifications})
	}
}

// POST /api/notifications
func CreateNotificationHandler(e *Emitter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateNotificationRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		var recipient models.User
		if err := database.DB.First(&recipient, body.RecipientID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "recipient not found")
		}

		batch := []models.Notification{{
			RecipientID: recipient.ID,
			Type:        models.NotificationType(body.Type),
			Message:     body.Message,
			SentAt:      e.now(),
		}}
		if _, err := e.Send(c.UserContext(), batch); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create notification")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":      "notification created",
			"notification": batch[0],
		})
	}
}
