package attribution

import (
	"context"

	"ppe-backend/internal/models"

	"gorm.io/gorm"
)

type EmployeeHistoryItem struct {
	AttributionID uint    `json:"attribution_id"`
	Date          string  `json:"date"`
	Material      string  `json:"material"`
	Category      string  `json:"category"`
	Sheet         *string `json:"sheet"`
}

type MaterialHistoryItem struct {
	AttributionID uint    `json:"attribution_id"`
	EmployeeID    uint    `json:"employee_id"`
	Employee      string  `json:"employee"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	Sheet         *string `json:"sheet"`
}

const undefinedCategory = "Undefined"

func sheetPath(a models.Attribution) *string {
	if a.Sheet == nil {
		return nil
	}
	p := a.Sheet.Path
	return &p
}

func categoryName(m models.Material) string {
	if m.Category.ID == 0 {
		return undefinedCategory
	}
	return m.Category.Name
}

// EmployeeHistory returns the employee's attributions, newest first.
func EmployeeHistory(ctx context.Context, db *gorm.DB, employeeID uint) ([]EmployeeHistoryItem, error) {
	assignments := db.Model(&models.Assignment{}).Select("id").Where("employee_id = ?", employeeID)

	var rows []models.Attribution
	err := db.WithContext(ctx).
		Where("assignment_id IN (?)", assignments).
		Preload("Assignment.Material.Category").
		Preload("Sheet").
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]EmployeeHistoryItem, 0, len(rows))
	for _, a := range rows {
		m := a.Assignment.Material
		out = append(out, EmployeeHistoryItem{
			AttributionID: a.ID,
			Date:          a.Date.Format("2006-01-02"),
			Material:      m.Description,
			Category:      categoryName(m),
			Sheet:         sheetPath(a),
		})
	}
	return out, nil
}

// MaterialHistory returns every attribution that handed out the material, newest first.
func MaterialHistory(ctx context.Context, db *gorm.DB, materialID uint) ([]MaterialHistoryItem, error) {
	linked := db.Table("attribution_materials").Select("attribution_id").Where("material_id = ?", materialID)

	var rows []models.Attribution
	err := db.WithContext(ctx).
		Where("id IN (?)", linked).
		Preload("Assignment.Employee").
		Preload("Assignment.Material.Category").
		Preload("Sheet").
		Order("date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]MaterialHistoryItem, 0, len(rows))
	for _, a := range rows {
		out = append(out, MaterialHistoryItem{
			AttributionID: a.ID,
			EmployeeID:    a.Assignment.EmployeeID,
			Employee:      a.Assignment.Employee.FullName(),
			Date:          a.Date.Format("2006-01-02"),
			Category:      categoryName(a.Assignment.Material),
			Sheet:         sheetPath(a),
		})
	}
	return out, nil
}
