package stock

import (
	"errors"
	"fmt"
	"strconv"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/database"
	"ppe-backend/internal/metrics"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type AddStockRequest struct {
	MaterialID uint `json:"material_id" validate:"required"`
	CategoryID uint `json:"category_id" validate:"required"`
	Quantity   int  `json:"quantity" validate:"gt=0"`
}

type StockEntryResponse struct {
	ID         uint   `json:"id"`
	MaterialID uint   `json:"material_id"`
	Material   string `json:"material"`
	CategoryID uint   `json:"category_id"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	UpdatedAt  string `json:"updated_at"`
}

func toResponse(e models.StockEntry) StockEntryResponse {
	return StockEntryResponse{
		ID:         e.ID,
		MaterialID: e.MaterialID,
		Material:   e.Material.Description,
		CategoryID: e.CategoryID,
		Category:   e.Category.Name,
		Quantity:   e.Quantity,
		UpdatedAt:  e.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func queryUint(c *fiber.Ctx, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// POST /api/stocks
func AddStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddStockRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		var material models.Material
		if err := database.DB.First(&material, body.MaterialID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "material not found")
		}
		var category models.Category
		if err := database.DB.First(&category, body.CategoryID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}

		ledger := NewLedger(database.DB)
		entry, err := ledger.Add(c.UserContext(), body.MaterialID, body.CategoryID, body.Quantity)
		if err != nil {
			if errors.Is(err, ErrInvalidAmount) {
				return &validation.Error{Fields: map[string]string{"quantity": "must be greater than 0"}}
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not add stock")
		}
		metrics.StockUnitsAdded.Add(float64(body.Quantity))

		entry.Material = material
		entry.Category = category

		audit.Record(c, audit.EntityStockEntry, entry.ID, models.AuditActionUpdate,
			fmt.Sprintf("Stock received: %s / %s +%d (now %d)", material.Description, category.Name, body.Quantity, entry.Quantity),
			nil, toResponse(*entry))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "stock added",
			"stock":   toResponse(*entry),
		})
	}
}

// GET /api/stocks?material_id=1&category_id=2
func ListStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := NewLedger(database.DB).List(c.UserContext(), Filter{
			MaterialID: queryUint(c, "material_id"),
			CategoryID: queryUint(c, "category_id"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list stock")
		}

		res := make([]StockEntryResponse, 0, len(rows))
		for _, r := range rows {
			res = append(res, toResponse(r))
		}
		return c.JSON(res)
	}
}

// GET /api/materials/:id/stock
func MaterialStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid material id")
		}

		var material models.Material
		if err := database.DB.First(&material, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "material not found")
		}

		rows, err := NewLedger(database.DB).ByMaterial(c.UserContext(), material.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load stock")
		}

		return c.JSON(fiber.Map{
			"material":           material.Description,
			"stocks_by_category": ByCategory(rows),
		})
	}
}

// GET /api/materials/:id/categories
func MaterialCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid material id")
		}

		var material models.Material
		if err := database.DB.First(&material, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "material not found")
		}

		rows, err := NewLedger(database.DB).ByMaterial(c.UserContext(), material.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load categories")
		}

		type categoryWithQuantity struct {
			ID       uint   `json:"id"`
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		}
		categories := make([]categoryWithQuantity, 0, len(rows))
		for _, r := range rows {
			categories = append(categories, categoryWithQuantity{ID: r.CategoryID, Name: r.Category.Name, Quantity: r.Quantity})
		}

		return c.JSON(fiber.Map{
			"material":   material.Description,
			"categories": categories,
		})
	}
}

type CategoryQuantity struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// ByCategory flattens stock rows into category/quantity pairs.
func ByCategory(rows []models.StockEntry) []CategoryQuantity {
	out := make([]CategoryQuantity, 0, len(rows))
	for _, r := range rows {
		out = append(out, CategoryQuantity{Category: r.Category.Name, Quantity: r.Quantity})
	}
	return out
}
