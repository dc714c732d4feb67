package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/stock"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type MaterialRequest struct {
	Description      string `json:"description" validate:"required,max=255"`
	CategoryID       uint   `json:"category_id" validate:"required"`
	RenewalFrequency string `json:"renewal_frequency" validate:"required,max=50"`
}

type MaterialResponse struct {
	ID               uint   `json:"id"`
	Description      string `json:"description"`
	CategoryID       uint   `json:"category_id"`
	Category         string `json:"category"`
	RenewalFrequency string `json:"renewal_frequency"`
}

func toMaterialResponse(m models.Material) MaterialResponse {
	return MaterialResponse{
		ID:               m.ID,
		Description:      m.Description,
		CategoryID:       m.CategoryID,
		Category:         m.Category.Name,
		RenewalFrequency: m.RenewalFrequency,
	}
}

func findMaterial(c *fiber.Ctx) (*models.Material, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid material id")
	}
	var m models.Material
	if err := database.DB.Preload("Category").First(&m, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, "material not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "could not load material")
	}
	return &m, nil
}

func categoryExists(id uint) (*models.Category, error) {
	var cat models.Category
	if err := database.DB.First(&cat, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "category not found")
	}
	return &cat, nil
}

// GET /api/materials?description=gant&category_id=2&frequency=yearly
func ListMaterialsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Material{}).Preload("Category")

		if d := strings.TrimSpace(c.Query("description")); d != "" {
			q = q.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(d)+"%")
		}
		if raw := c.Query("category_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid category_id")
			}
			q = q.Where("category_id = ?", id)
		}
		if f := strings.TrimSpace(c.Query("frequency")); f != "" {
			q = q.Where("renewal_frequency = ?", f)
		}

		var materials []models.Material
		if err := q.Order("description asc, id asc").Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list materials")
		}

		res := make([]MaterialResponse, 0, len(materials))
		for _, m := range materials {
			res = append(res, toMaterialResponse(m))
		}
		return c.JSON(res)
	}
}

// GET /api/materials/:id
func GetMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := findMaterial(c)
		if err != nil {
			return err
		}
		return c.JSON(toMaterialResponse(*m))
	}
}

// GET /api/materials/:id/details
func MaterialDetailsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := findMaterial(c)
		if err != nil {
			return err
		}

		rows, err := stock.NewLedger(database.DB).List(c.UserContext(), stock.Filter{MaterialID: m.ID})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load stock")
		}

		return c.JSON(fiber.Map{
			"id":                m.ID,
			"description":       m.Description,
			"category":          m.Category.Name,
			"renewal_frequency": m.RenewalFrequency,
			"stocks":            stock.ByCategory(rows),
		})
	}
}

// POST /api/materials
func CreateMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MaterialRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		cat, err := categoryExists(body.CategoryID)
		if err != nil {
			return err
		}

		m := models.Material{
			Description:      strings.TrimSpace(body.Description),
			CategoryID:       cat.ID,
			RenewalFrequency: strings.TrimSpace(body.RenewalFrequency),
		}
		if err := database.DB.Omit("Category").Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create material")
		}
		m.Category = *cat

		audit.Record(c, audit.EntityMaterial, m.ID, models.AuditActionCreate,
			fmt.Sprintf("Material created: %s (%s)", m.Description, cat.Name), nil, m)

		return c.Status(fiber.StatusCreated).JSON(toMaterialResponse(m))
	}
}

// PUT /api/materials/:id
func UpdateMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := findMaterial(c)
		if err != nil {
			return err
		}
		before := *m

		var body MaterialRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		cat, err := categoryExists(body.CategoryID)
		if err != nil {
			return err
		}

		m.Description = strings.TrimSpace(body.Description)
		m.CategoryID = cat.ID
		m.RenewalFrequency = strings.TrimSpace(body.RenewalFrequency)
		if err := database.DB.Model(&models.Material{}).Where("id = ?", m.ID).Updates(map[string]any{
			"description":       m.Description,
			"category_id":       m.CategoryID,
			"renewal_frequency": m.RenewalFrequency,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update material")
		}
		m.Category = *cat

		audit.Record(c, audit.EntityMaterial, m.ID, models.AuditActionUpdate,
			fmt.Sprintf("Material updated: %s", m.Description), before, m)

		return c.JSON(toMaterialResponse(*m))
	}
}

// DELETE /api/materials/:id
func DeleteMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := findMaterial(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Material{}, m.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete material")
		}

		audit.Record(c, audit.EntityMaterial, m.ID, models.AuditActionDelete,
			fmt.Sprintf("Material deleted: %s", m.Description), m, nil)

		return c.JSON(fiber.Map{"message": "material deleted"})
	}
}
