package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ppe-backend/internal/database"
	"ppe-backend/internal/metrics"
	"ppe-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAttributionNotFound = errors.New("attribution not found")
	ErrSheetNotFound       = errors.New("no sheet generated for this attribution")
)

type Service struct {
	db      *gorm.DB
	storage Storage
	now     func() time.Time
}

func NewService(db *gorm.DB, storage Storage) *Service {
	return &Service{db: db, storage: storage, now: time.Now}
}

func objectKey(attributionID uint, at time.Time) string {
	return fmt.Sprintf("sheets/%s/attribution-%d-%s.pdf", at.Format("2006/01"), attributionID, uuid.New().String()[:8])
}

func (s *Service) load(ctx context.Context, attributionID uint) (*models.Attribution, error) {
	var a models.Attribution
	err := s.db.WithContext(ctx).
		Preload("Assignment.Employee").
		Preload("Materials.Category").
		First(&a, attributionID).Error
	if database.IsNotFound(err) {
		return nil, ErrAttributionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Generate renders the attribution's sheet, stores it and points the AttributionSheet row at
// it. Regenerating replaces the previous path.
func (s *Service) Generate(ctx context.Context, attributionID uint) (*models.AttributionSheet, error) {
	a, err := s.load(ctx, attributionID)
	if err != nil {
		return nil, err
	}

	employee := a.Assignment.Employee
	data := Data{
		AttributionID:      a.ID,
		Date:               a.Date,
		RegistrationNumber: employee.RegistrationNumber,
		EmployeeName:       employee.FullName(),
	}
	for _, m := range a.Materials {
		data.Items = append(data.Items, Item{
			Description:      m.Description,
			Category:         m.Category.Name,
			RenewalFrequency: m.RenewalFrequency,
		})
	}

	pdf, err := Render(data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := objectKey(a.ID, now)
	if err := s.storage.Save(ctx, key, pdf); err != nil {
		return nil, err
	}

	var (
		sheet   models.AttributionSheet
		oldPath string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("attribution_id = ?", a.ID).First(&sheet).Error
		if err != nil && !database.IsNotFound(err) {
			return err
		}
		oldPath = sheet.Path
		sheet.AttributionID = a.ID
		sheet.GeneratedAt = now
		sheet.Format = "PDF"
		sheet.Path = key
		return tx.Save(&sheet).Error
	})
	if err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("save sheet: %w", err)
	}
	if oldPath != "" && oldPath != key {
		s.discard(ctx, oldPath)
	}

	metrics.SheetsGenerated.Inc()
	zap.L().Info("attribution sheet generated",
		zap.Uint("attribution_id", a.ID),
		zap.String("path", key),
		zap.Int("bytes", len(pdf)))

	return &sheet, nil
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		zap.L().Warn("stale sheet not removed", zap.String("path", key), zap.Error(err))
	}
}

// Open returns the stored PDF of an attribution.
func (s *Service) Open(ctx context.Context, attributionID uint) (io.ReadCloser, *models.AttributionSheet, error) {
	var sheet models.AttributionSheet
	err := s.db.WithContext(ctx).Where("attribution_id = ?", attributionID).First(&sheet).Error
	if database.IsNotFound(err) {
		return nil, nil, ErrSheetNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.storage.Open(ctx, sheet.Path)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, nil, ErrSheetNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, &sheet, nil
}
