package dashboard

import (
	"time"

	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
)

type Counts struct {
	Employees          int64 `json:"employees"`
	Materials          int64 `json:"materials"`
	Categories         int64 `json:"categories"`
	PendingAssignments int64 `json:"pending_assignments"`
	Attributions       int64 `json:"attributions"`
	StockUnits         int64 `json:"stock_units"`
}

type CriticalRow struct {
	MaterialID uint   `json:"material_id"`
	Material   string `json:"material"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
}

type DailyPoint struct {
	Label        string `json:"label"`
	Attributions int    `json:"attributions"`
}

type SummaryResponse struct {
	Counts        Counts        `json:"counts"`
	Threshold     int           `json:"threshold"`
	CriticalStock []CriticalRow `json:"critical_stock"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	Points        []DailyPoint  `json:"points"`
}

const defaultDays = 30

func loadCounts() (Counts, error) {
	var out Counts
	db := database.DB
	if err := db.Model(&models.Employee{}).Count(&out.Employees).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Material{}).Count(&out.Materials).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Category{}).Count(&out.Categories).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Attribution{}).Count(&out.Attributions).Error; err != nil {
		return out, err
	}
	attributed := db.Model(&models.Attribution{}).Select("assignment_id")
	if err := db.Model(&models.Assignment{}).Where("id NOT IN (?)", attributed).Count(&out.PendingAssignments).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.StockEntry{}).Select("COALESCE(SUM(quantity), 0)").Scan(&out.StockUnits).Error; err != nil {
		return out, err
	}
	return out, nil
}

// dailyPoints buckets attribution dates into one point per day in [from, to].
func dailyPoints(dates []time.Time, from, to time.Time) []DailyPoint {
	counts := make(map[string]int, len(dates))
	for _, d := range dates {
		counts[d.Format("2006-01-02")]++
	}
	var points []DailyPoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		label := d.Format("2006-01-02")
		points = append(points, DailyPoint{Label: label, Attributions: counts[label]})
	}
	return points
}

// GET /api/dashboard/summary?days=30
func SummaryHandler(threshold int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", defaultDays)
		if days <= 0 || days > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "days must be between 1 and 366")
		}

		counts, err := loadCounts()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load counts")
		}

		rows, err := stock.NewLedger(database.DB).Critical(c.UserContext(), threshold)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load critical stock")
		}
		critical := make([]CriticalRow, 0, len(rows))
		for _, r := range rows {
			critical = append(critical, CriticalRow{
				MaterialID: r.MaterialID,
				Material:   r.Material.Description,
				Category:   r.Category.Name,
				Quantity:   r.Quantity,
			})
		}

		now := time.Now()
		to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		from := to.AddDate(0, 0, -(days - 1))

		var dates []time.Time
		if err := database.DB.Model(&models.Attribution{}).
			Where("date >= ? AND date < ?", from, to.AddDate(0, 0, 1)).
			Pluck("date", &dates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load attributions")
		}

		return c.JSON(SummaryResponse{
			Counts:        counts,
			Threshold:     threshold,
			CriticalStock: critical,
			From:          from.Format("2006-01-02"),
			To:            to.Format("2006-01-02"),
			Points:        dailyPoints(dates, from, to),
		})
	}
}
