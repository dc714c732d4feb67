package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ppe-backend/internal/auth"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EntityCategory    = "category"
	EntityMaterial    = "material"
	EntityEmployee    = "employee"
	EntityStockEntry  = "stock_entry"
	EntityAssignment  = "assignment"
	EntityAttribution = "attribution"
)

var (
	ErrAlreadyUndone = errors.New("this action has already been undone")
	ErrNotUndoable   = errors.New("this action cannot be undone")
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func WriteLog(opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Record writes a log entry for the caller of c. Failures are logged and swallowed: the audit
// trail never fails the request it describes.
func Record(c *fiber.Ctx, entityType string, entityID uint, action models.AuditAction, description string, before, after any) {
	userID, userName := Actor(c)
	err := WriteLog(LogOptions{
		UserID:      userID,
		UserName:    userName,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
	})
	if err != nil {
		zap.L().Warn("audit log not written", zap.String("entity", entityType), zap.Uint("id", entityID), zap.Error(err))
	}
}

// Actor resolves the calling user's id and display name from the request locals.
func Actor(c *fiber.Ctx) (uint, string) {
	userID, ok := c.Locals(auth.CtxUserIDKey).(uint)
	if !ok {
		return 0, ""
	}
	var user models.User
	if err := database.DB.Select("id", "first_name", "last_name").First(&user, userID).Error; err != nil {
		return userID, ""
	}
	return userID, user.FullName()
}

// UndoLog reverts a catalog or employee change and records the undo.
func UndoLog(logID uint, userID uint, userName string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.AuditLog
		if err := tx.First(&entry, "id = ?", logID).Error; err != nil {
			return fmt.Errorf("log not found: %w", err)
		}
		if entry.IsUndone {
			return ErrAlreadyUndone
		}
		if entry.Action == models.AuditActionUndo {
			return ErrNotUndoable
		}

		switch entry.Action {
		case models.AuditActionCreate:
			if err := deleteEntity(tx, entry.EntityType, entry.EntityID); err != nil {
				return err
			}
		case models.AuditActionUpdate:
			if err := restoreEntity(tx, entry.EntityType, entry.EntityID, entry.BeforeData); err != nil {
				return err
			}
		case models.AuditActionDelete:
			if err := recreateEntity(tx, entry.EntityType, entry.BeforeData); err != nil {
				return err
			}
		default:
			return ErrNotUndoable
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &userID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("update log: %w", err)
		}

		undo := models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Undone: " + entry.Description,
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("write undo log: %w", err)
		}
		return nil
	})
}

func deleteEntity(tx *gorm.DB, entityType string, entityID uint) error {
	switch entityType {
	case EntityCategory:
		return tx.Delete(&models.Category{}, "id = ?", entityID).Error
	case EntityMaterial:
		return tx.Delete(&models.Material{}, "id = ?", entityID).Error
	case EntityEmployee:
		return tx.Delete(&models.Employee{}, "id = ?", entityID).Error
	default:
		return ErrNotUndoable
	}
}

func recreateEntity(tx *gorm.DB, entityType string, data datatypes.JSON) error {
	switch entityType {
	case EntityCategory:
		var cat models.Category
		if err := json.Unmarshal(data, &cat); err != nil {
			return err
		}
		return tx.Create(&cat).Error
	case EntityMaterial:
		var mat models.Material
		if err := json.Unmarshal(data, &mat); err != nil {
			return err
		}
		return tx.Omit("Category").Create(&mat).Error
	case EntityEmployee:
		var emp models.Employee
		if err := json.Unmarshal(data, &emp); err != nil {
			return err
		}
		return tx.Omit("User").Create(&emp).Error
	default:
		return ErrNotUndoable
	}
}

func restoreEntity(tx *gorm.DB, entityType string, entityID uint, data datatypes.JSON) error {
	switch entityType {
	case EntityCategory:
		var cat models.Category
		if err := json.Unmarshal(data, &cat); err != nil {
			return err
		}
		return tx.Model(&models.Category{}).Where("id = ?", entityID).Updates(map[string]interface{}{
			"name": cat.Name,
		}).Error
	case EntityMaterial:
		var mat models.Material
		if err := json.Unmarshal(data, &mat); err != nil {
			return err
		}
		return tx.Model(&models.Material{}).Where("id = ?", entityID).Updates(map[string]interface{}{
			"description":       mat.Description,
			"category_id":       mat.CategoryID,
			"renewal_frequency": mat.RenewalFrequency,
		}).Error
	case EntityEmployee:
		var emp models.Employee
		if err := json.Unmarshal(data, &emp); err != nil {
			return err
		}
		return tx.Model(&models.Employee{}).Where("id = ?", entityID).Updates(map[string]interface{}{
			"registration_number": emp.RegistrationNumber,
			"first_name":          emp.FirstName,
			"last_name":           emp.LastName,
			"user_id":             emp.UserID,
		}).Error
	default:
		return ErrNotUndoable
	}
}
