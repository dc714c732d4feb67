package stock

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ppe-backend/internal/audit"
	"ppe-backend/internal/database"
	"ppe-backend/internal/metrics"
	"ppe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportRow is one receipt line of an uploaded workbook: material, category, quantity.
type ImportRow struct {
	Line     int
	Material string
	Category string
	Quantity int
}

// ParseWorkbook reads the first sheet. A first row starting with "material" is a header.
// Rows with a blank material are skipped; a non-numeric quantity is an error naming the line.
func ParseWorkbook(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "material") {
		start = 1
	}

	var out []ImportRow
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: expected material, category and quantity", i+1)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("line %d: quantity must be a positive integer", i+1)
		}
		out = append(out, ImportRow{
			Line:     i + 1,
			Material: strings.TrimSpace(row[0]),
			Category: strings.TrimSpace(row[1]),
			Quantity: qty,
		})
	}
	return out, nil
}

// POST /api/stocks/import (multipart, field "file")
func ImportStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files are accepted")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not open upload")
		}
		defer file.Close()

		rows, err := ParseWorkbook(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var materials []models.Material
		if err := database.DB.Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load materials")
		}
		var categories []models.Category
		if err := database.DB.Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load categories")
		}
		materialByName := make(map[string]models.Material, len(materials))
		for _, m := range materials {
			materialByName[strings.ToLower(m.Description)] = m
		}
		categoryByName := make(map[string]models.Category, len(categories))
		for _, cat := range categories {
			categoryByName[strings.ToLower(cat.Name)] = cat
		}

		type importedLine struct {
			row      ImportRow
			material models.Material
			category models.Category
			entry    *models.StockEntry
		}

		// All lines land or none do.
		var done []importedLine
		unmatched := make([]string, 0)
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			ledger := NewLedger(tx)
			for _, r := range rows {
				m, okM := materialByName[strings.ToLower(r.Material)]
				cat, okC := categoryByName[strings.ToLower(r.Category)]
				if !okM || !okC {
					unmatched = append(unmatched, fmt.Sprintf("line %d: %s / %s", r.Line, r.Material, r.Category))
					continue
				}

				entry, err := ledger.Add(c.UserContext(), m.ID, cat.ID, r.Quantity)
				if err != nil {
					zap.L().Error("stock import failed", zap.Int("line", r.Line), zap.Error(err))
					return fiber.NewError(fiber.StatusInternalServerError,
						fmt.Sprintf("line %d: could not add stock, nothing was imported", r.Line))
				}
				done = append(done, importedLine{row: r, material: m, category: cat, entry: entry})
			}
			return nil
		})
		if err != nil {
			return err
		}

		units := 0
		for _, d := range done {
			metrics.StockUnitsAdded.Add(float64(d.row.Quantity))
			units += d.row.Quantity
			audit.Record(c, audit.EntityStockEntry, d.entry.ID, models.AuditActionUpdate,
				fmt.Sprintf("Stock imported: %s / %s +%d (now %d)", d.material.Description, d.category.Name, d.row.Quantity, d.entry.Quantity),
				nil, nil)
		}
		imported := len(done)

		return c.JSON(fiber.Map{
			"imported":  imported,
			"units":     units,
			"unmatched": unmatched,
			"message":   fmt.Sprintf("%d lines imported, %d unmatched", imported, len(unmatched)),
		})
	}
}
