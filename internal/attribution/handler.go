package attribution

import (
	"errors"
	"fmt"
	"time"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/auth"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateAttributionRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
}

type AttributionResponse struct {
	ID             uint    `json:"id"`
	AssignmentID   uint    `json:"assignment_id"`
	EmployeeID     uint    `json:"employee_id"`
	MaterialID     uint    `json:"material_id"`
	Material       string  `json:"material"`
	Category       string  `json:"category"`
	Date           string  `json:"date"`
	RemainingStock *int    `json:"remaining_stock,omitempty"`
	Sheet          *string `json:"sheet"`
}

func newResponse(a models.Attribution, assignment models.Assignment) AttributionResponse {
	return AttributionResponse{
		ID:           a.ID,
		AssignmentID: a.AssignmentID,
		EmployeeID:   assignment.EmployeeID,
		MaterialID:   assignment.MaterialID,
		Material:     assignment.Material.Description,
		Category:     categoryName(assignment.Material),
		Date:         a.Date.Format("2006-01-02"),
		Sheet:        sheetPath(a),
	}
}

// POST /api/attributions
func CreateAttributionHandler(p *Processor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAttributionRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return &validation.Error{Fields: map[string]string{"date": "must be a date formatted as 2006-01-02"}}
		}

		actorID, _ := auth.CurrentUserID(c)

		res, err := p.Attribute(c.UserContext(), Request{
			AssignmentID: body.AssignmentID,
			Date:         date,
			ActorID:      actorID,
		})
		switch {
		case errors.Is(err, ErrAssignmentNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrAlreadyAttributed):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return err
		}

		resp := newResponse(res.Attribution, res.Assignment)
		resp.RemainingStock = &res.Remaining

		audit.Record(c, audit.EntityAttribution, res.Attribution.ID, models.AuditActionCreate,
			fmt.Sprintf("Attribution: %s to employee %s", res.Assignment.Material.Description, res.Assignment.Employee.RegistrationNumber),
			nil, resp)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":     "attribution recorded",
			"attribution": resp,
		})
	}
}

// GET /api/attributions
func ListAttributionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Attribution
		if err := database.DB.
			Preload("Assignment.Material.Category").
			Preload("Sheet").
			Order("date DESC, id DESC").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list attributions")
		}

		res := make([]AttributionResponse, 0, len(rows))
		for _, a := range rows {
			res = append(res, newResponse(a, a.Assignment))
		}
		return c.JSON(res)
	}
}

// GET /api/employees/:id/attributions
func EmployeeHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid employee id")
		}

		var employee models.Employee
		if err := database.DB.First(&employee, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "employee not found")
		}

		history, err := EmployeeHistory(c.UserContext(), database.DB, employee.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load history")
		}

		return c.JSON(fiber.Map{
			"employee_id": employee.ID,
			"history":     history,
		})
	}
}

// GET /api/materials/:id/history
func MaterialHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid material id")
		}

		var material models.Material
		if err := database.DB.First(&material, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "material not found")
		}

		history, err := MaterialHistory(c.UserContext(), database.DB, material.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load history")
		}

		return c.JSON(fiber.Map{
			"material_id": material.ID,
			"history":     history,
		})
	}
}
