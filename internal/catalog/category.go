package catalog

import (
	"fmt"
	"strings"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func duplicateName() error {
	return &validation.Error{Fields: map[string]string{"name": "already exists"}}
}

func findCategory(c *fiber.Ctx) (*models.Category, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid category id")
	}
	var cat models.Category
	if err := database.DB.First(&cat, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "could not load category")
	}
	return &cat, nil
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list categories")
		}
		return c.JSON(categories)
	}
}

// GET /api/categories/:id
func GetCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		return c.JSON(cat)
	}
}

// POST /api/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return &validation.Error{Fields: map[string]string{"name": "is required"}}
		}

		cat := models.Category{Name: name}
		if err := database.DB.Create(&cat).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return duplicateName()
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create category")
		}

		audit.Record(c, audit.EntityCategory, cat.ID, models.AuditActionCreate,
			fmt.Sprintf("Category created: %s", cat.Name), nil, cat)

		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		before := *cat

		var body CategoryRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return &validation.Error{Fields: map[string]string{"name": "is required"}}
		}

		cat.Name = name
		if err := database.DB.Save(cat).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return duplicateName()
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not update category")
		}

		audit.Record(c, audit.EntityCategory, cat.ID, models.AuditActionUpdate,
			fmt.Sprintf("Category renamed: %s -> %s", before.Name, cat.Name), before, cat)

		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete category")
		}

		audit.Record(c, audit.EntityCategory, cat.ID, models.AuditActionDelete,
			fmt.Sprintf("Category deleted: %s", cat.Name), cat, nil)

		return c.JSON(fiber.Map{"message": "category deleted"})
	}
}
