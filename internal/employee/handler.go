package employee

import (
	"fmt"
	"strings"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type EmployeeRequest struct {
	RegistrationNumber string `json:"registration_number" validate:"required,max=50"`
	FirstName          string `json:"first_name" validate:"required,max=100"`
	LastName           string `json:"last_name" validate:"required,max=100"`
	UserID             *uint  `json:"user_id"`
}

func (r EmployeeRequest) apply(e *models.Employee) {
	e.RegistrationNumber = strings.TrimSpace(r.RegistrationNumber)
	e.FirstName = strings.TrimSpace(r.FirstName)
	e.LastName = strings.TrimSpace(r.LastName)
	e.UserID = r.UserID
}

func checkUser(userID *uint) error {
	if userID == nil {
		return nil
	}
	var count int64
	if err := database.DB.Model(&models.User{}).Where("id = ?", *userID).Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not check user")
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return nil
}

func duplicateRegistration() error {
	return &validation.Error{Fields: map[string]string{"registration_number": "already exists"}}
}

func findEmployee(c *fiber.Ctx) (*models.Employee, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid employee id")
	}
	var e models.Employee
	if err := database.DB.First(&e, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, "employee not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "could not load employee")
	}
	return &e, nil
}

// GET /api/employees?search=dupont
func ListEmployeesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Employee{})
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where("LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(registration_number) LIKE ?", like, like, like)
		}

		var employees []models.Employee
		if err := q.Order("last_name asc, first_name asc, id asc").Find(&employees).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list employees")
		}
		return c.JSON(employees)
	}
}

// GET /api/employees/:id
func GetEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := findEmployee(c)
		if err != nil {
			return err
		}
		return c.JSON(e)
	}
}

// POST /api/employees
func CreateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EmployeeRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if err := checkUser(body.UserID); err != nil {
			return err
		}

		var e models.Employee
		body.apply(&e)
		if err := database.DB.Omit("User").Create(&e).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return duplicateRegistration()
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create employee")
		}

		audit.Record(c, audit.EntityEmployee, e.ID, models.AuditActionCreate,
			fmt.Sprintf("Employee created: %s (%s)", e.FullName(), e.RegistrationNumber), nil, e)

		return c.Status(fiber.StatusCreated).JSON(e)
	}
}

// PUT /api/employees/:id
func UpdateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := findEmployee(c)
		if err != nil {
			return err
		}
		before := *e

		var body EmployeeRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if err := checkUser(body.UserID); err != nil {
			return err
		}

		body.apply(e)
		if err := database.DB.Model(&models.Employee{}).Where("id = ?", e.ID).Updates(map[string]any{
			"registration_number": e.RegistrationNumber,
			"first_name":          e.FirstName,
			"last_name":           e.LastName,
			"user_id":             e.UserID,
		}).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return duplicateRegistration()
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not update employee")
		}

		audit.Record(c, audit.EntityEmployee, e.ID, models.AuditActionUpdate,
			fmt.Sprintf("Employee updated: %s", e.FullName()), before, e)

		return c.JSON(e)
	}
}

// DELETE /api/employees/:id
func DeleteEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := findEmployee(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Employee{}, e.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete employee")
		}

		audit.Record(c, audit.EntityEmployee, e.ID, models.AuditActionDelete,
			fmt.Sprintf("Employee deleted: %s (%s)", e.FullName(), e.RegistrationNumber), e, nil)

		return c.JSON(fiber.Map{"message": "employee deleted"})
	}
}
