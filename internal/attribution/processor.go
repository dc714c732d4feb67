package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ppe-backend/internal/database"
	"ppe-backend/internal/metrics"
	"ppe-backend/internal/models"
	"ppe-backend/internal/notify"
	"ppe-backend/internal/stock"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrInsufficientStock  = errors.New("insufficient stock for this material")
	ErrAlreadyAttributed  = errors.New("assignment already attributed")
)

// Processor turns assignments into attributions. Each call hands out exactly one unit, whatever
// the assignment asked for.
type Processor struct {
	db      *gorm.DB
	emitter *notify.Emitter
}

func NewProcessor(db *gorm.DB, emitter *notify.Emitter) *Processor {
	return &Processor{db: db, emitter: emitter}
}

type Request struct {
	AssignmentID uint
	Date         time.Time
	ActorID      uint
}

type Result struct {
	Attribution models.Attribution
	Assignment  models.Assignment
	Remaining   int
	Notified    int
}

// Attribute checks and decrements stock, records the attribution and links the material in one
// transaction. Notifications are sent after commit; their failure is logged, not returned.
func (p *Processor) Attribute(ctx context.Context, req Request) (*Result, error) {
	res, err := p.commit(ctx, req)
	if err != nil {
		metrics.Attributions.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	metrics.Attributions.WithLabelValues(metrics.ResultSuccess).Inc()

	material := res.Assignment.Material
	ev := notify.AttributionEvent{
		AttributionID:      res.Attribution.ID,
		EmployeeID:         res.Assignment.EmployeeID,
		EmployeeName:       res.Assignment.Employee.FullName(),
		RegistrationNumber: res.Assignment.Employee.RegistrationNumber,
		Material:           material.Description,
		Category:           material.Category.Name,
		Remaining:          res.Remaining,
	}
	notified, err := p.emitter.AttributionRecorded(ctx, ev)
	res.Notified = notified
	if err != nil {
		zap.L().Error("attribution notifications incomplete",
			zap.Uint("attribution_id", res.Attribution.ID),
			zap.Int("written", notified),
			zap.Error(err))
	}

	zap.L().Info("attribution recorded",
		zap.Uint("attribution_id", res.Attribution.ID),
		zap.Uint("assignment_id", res.Assignment.ID),
		zap.Int("remaining", res.Remaining))

	return res, nil
}

func (p *Processor) commit(ctx context.Context, req Request) (*Result, error) {
	var res Result

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment := &res.Assignment
		if err := tx.Preload("Material.Category").Preload("Employee").First(assignment, req.AssignmentID).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("load assignment: %w", err)
		}

		var existing int64
		if err := tx.Model(&models.Attribution{}).Where("assignment_id = ?", assignment.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check attribution: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyAttributed
		}

		remaining, err := stock.NewLedger(tx).Decrement(ctx, assignment.MaterialID, assignment.Material.CategoryID)
		if errors.Is(err, stock.ErrInsufficient) {
			return ErrInsufficientStock
		}
		if err != nil {
			return err
		}
		res.Remaining = remaining

		res.Attribution = models.Attribution{
			AssignmentID: assignment.ID,
			Date:         req.Date,
		}
		if req.ActorID != 0 {
			actor := req.ActorID
			res.Attribution.CreatedBy = &actor
		}
		if err := tx.Omit(clause.Associations).Create(&res.Attribution).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyAttributed
			}
			return fmt.Errorf("create attribution: %w", err)
		}

		if err := tx.Table("attribution_materials").Create(map[string]any{
			"attribution_id": res.Attribution.ID,
			"material_id":    assignment.MaterialID,
		}).Error; err != nil {
			return fmt.Errorf("link material: %w", err)
		}
		res.Attribution.Materials = []models.Material{assignment.Material}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrAssignmentNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrInsufficientStock):
		return metrics.ResultInsufficientStock
	case errors.Is(err, ErrAlreadyAttributed):
		return metrics.ResultAlreadyAttributed
	default:
		return metrics.ResultError
	}
}
