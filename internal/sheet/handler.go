package sheet

import (
	"errors"
	"fmt"
	"io"

	"ppe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SheetResponse struct {
	AttributionID uint   `json:"attribution_id"`
	Format        string `json:"format"`
	Path          string `json:"path"`
	GeneratedAt   string `json:"generated_at"`
}

func toResponse(s *models.AttributionSheet) SheetResponse {
	return SheetResponse{
		AttributionID: s.AttributionID,
		Format:        s.Format,
		Path:          s.Path,
		GeneratedAt:   s.GeneratedAt.Format("2006-01-02 15:04:05"),
	}
}

func attributionID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid attribution id")
	}
	return uint(id), nil
}

// POST /api/attributions/:id/sheet
func GenerateSheetHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := attributionID(c)
		if err != nil {
			return err
		}

		sheet, err := s.Generate(c.UserContext(), id)
		if errors.Is(err, ErrAttributionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "sheet generated",
			"sheet":   toResponse(sheet),
		})
	}
}

// GET /api/attributions/:id/sheet
func DownloadSheetHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := attributionID(c)
		if err != nil {
			return err
		}

		rc, _, err := s.Open(c.UserContext(), id)
		if errors.Is(err, ErrSheetNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return err
		}
		defer rc.Close()

		body, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read sheet: %w", err)
		}

		c.Set(fiber.HeaderContentType, pdfContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="attribution-%d.pdf"`, id))
		return c.Send(body)
	}
}
