package stock

import (
	"bytes"
	"fmt"
	"time"

	"ppe-backend/internal/database"
	"ppe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Stock"

// WriteWorkbook renders stock rows as an xlsx workbook. Rows under threshold are flagged.
func WriteWorkbook(rows []models.StockEntry, threshold int) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headers := []string{"Material", "Category", "Quantity", "Critical"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, r := range rows {
		row := i + 2
		critical := ""
		if r.Quantity < threshold {
			critical = "yes"
		}
		values := []any{r.Material.Description, r.Category.Name, r.Quantity, critical}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "B", 30); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

// GET /api/stocks/export
func ExportStockHandler(threshold int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := NewLedger(database.DB).List(c.UserContext(), Filter{
			MaterialID: queryUint(c, "material_id"),
			CategoryID: queryUint(c, "category_id"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load stock")
		}

		buf, err := WriteWorkbook(rows, threshold)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not build workbook")
		}

		filename := fmt.Sprintf("stock_%s.xlsx", time.Now().Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(buf.Bytes())
	}
}
