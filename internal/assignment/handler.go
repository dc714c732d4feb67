package assignment

import (
	"fmt"
	"strconv"
	"time"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/auth"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	StatusPending    = "pending"
	StatusAttributed = "attributed"
)

type CreateAssignmentRequest struct {
	EmployeeID uint   `json:"employee_id" validate:"required"`
	MaterialID uint   `json:"material_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
}

type AssignmentResponse struct {
	ID            uint   `json:"id"`
	EmployeeID    uint   `json:"employee_id"`
	Employee      string `json:"employee"`
	MaterialID    uint   `json:"material_id"`
	Material      string `json:"material"`
	Category      string `json:"category"`
	Date          string `json:"date"`
	Status        string `json:"status"`
	AttributionID *uint  `json:"attribution_id"`
}

func toResponse(a models.Assignment) AssignmentResponse {
	res := AssignmentResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Employee:   a.Employee.FullName(),
		MaterialID: a.MaterialID,
		Material:   a.Material.Description,
		Category:   a.Material.Category.Name,
		Date:       a.Date.Format("2006-01-02"),
		Status:     StatusPending,
	}
	if a.Attribution != nil {
		id := a.Attribution.ID
		res.Status = StatusAttributed
		res.AttributionID = &id
	}
	return res
}

// POST /api/assignments
func CreateAssignmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAssignmentRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return &validation.Error{Fields: map[string]string{"date": "must be a date formatted as 2006-01-02"}}
		}

		var employee models.Employee
		if err := database.DB.First(&employee, body.EmployeeID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "employee not found")
		}
		var material models.Material
		if err := database.DB.Preload("Category").First(&material, body.MaterialID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "material not found")
		}

		a := models.Assignment{
			EmployeeID: employee.ID,
			MaterialID: material.ID,
			Date:       date,
		}
		if uid, err := auth.CurrentUserID(c); err == nil {
			a.CreatedBy = &uid
		}
		if err := database.DB.Omit("Employee", "Material", "Attribution").Create(&a).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create assignment")
		}
		a.Employee = employee
		a.Material = material

		res := toResponse(a)
		audit.Record(c, audit.EntityAssignment, a.ID, models.AuditActionCreate,
			fmt.Sprintf("Assignment: %s to %s", material.Description, employee.FullName()), nil, res)

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/assignments?status=pending&employee_id=3
func ListAssignmentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Assignment{}).
			Preload("Employee").
			Preload("Material.Category").
			Preload("Attribution")

		attributed := database.DB.Model(&models.Attribution{}).Select("assignment_id")
		switch c.Query("status") {
		case "":
		case StatusPending:
			q = q.Where("id NOT IN (?)", attributed)
		case StatusAttributed:
			q = q.Where("id IN (?)", attributed)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status must be pending or attributed")
		}

		if raw := c.Query("employee_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid employee_id")
			}
			q = q.Where("employee_id = ?", id)
		}

		var rows []models.Assignment
		if err := q.Order("date DESC, id DESC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list assignments")
		}

		res := make([]AssignmentResponse, 0, len(rows))
		for _, a := range rows {
			res = append(res, toResponse(a))
		}
		return c.JSON(res)
	}
}

// GET /api/assignments/:id
func GetAssignmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid assignment id")
		}

		var a models.Assignment
		if err := database.DB.
			Preload("Employee").
			Preload("Material.Category").
			Preload("Attribution").
			First(&a, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "assignment not found")
		}
		return c.JSON(toResponse(a))
	}
}
