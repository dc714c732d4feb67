package audit

import (
	"errors"
	"testing"

	"ppe-backend/internal/models"
	"ppe-backend/internal/testutil"
)

func TestUndoMaterialUpdate(t *testing.T) {
	db := testutil.SetupDB(t)
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Gloves", cat.ID)
	before := mat

	mat.Description = "Nitrile gloves"
	if err := db.Model(&models.Material{}).Where("id = ?", mat.ID).Update("description", mat.Description).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := WriteLog(LogOptions{
		UserID: 1, EntityType: EntityMaterial, EntityID: mat.ID,
		Action: models.AuditActionUpdate, Before: before, After: mat,
	}); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	var entry models.AuditLog
	db.Order("id DESC").First(&entry)
	if err := UndoLog(entry.ID, 1, "Admin"); err != nil {
		t.Fatalf("UndoLog: %v", err)
	}

	var got models.Material
	db.First(&got, mat.ID)
	if got.Description != "Gloves" {
		t.Fatalf("description = %q, want Gloves", got.Description)
	}
	if err := UndoLog(entry.ID, 1, "Admin"); !errors.Is(err, ErrAlreadyUndone) {
		t.Fatalf("second undo err = %v, want ErrAlreadyUndone", err)
	}
	if c := testutil.Count(t, db, &models.AuditLog{}, "action = ?", models.AuditActionUndo); c != 1 {
		t.Fatalf("undo entries = %d, want 1", c)
	}
}

func TestUndoEmployeeDeleteKeepsID(t *testing.T) {
	db := testutil.SetupDB(t)
	emp := testutil.SeedEmployee(t, db, "M-007", "Jean", "Dupont")

	if err := db.Delete(&models.Employee{}, emp.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := WriteLog(LogOptions{
		EntityType: EntityEmployee, EntityID: emp.ID,
		Action: models.AuditActionDelete, Before: emp,
	}); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	var entry models.AuditLog
	db.Order("id DESC").First(&entry)
	if err := UndoLog(entry.ID, 1, "Admin"); err != nil {
		t.Fatalf("UndoLog: %v", err)
	}

	var got models.Employee
	if err := db.First(&got, emp.ID).Error; err != nil {
		t.Fatalf("employee not restored: %v", err)
	}
	if got.RegistrationNumber != "M-007" {
		t.Fatalf("restored %+v", got)
	}
}

func TestStockEntriesAreNotUndoable(t *testing.T) {
	db := testutil.SetupDB(t)
	if err := WriteLog(LogOptions{EntityType: EntityStockEntry, EntityID: 1, Action: models.AuditActionUpdate}); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	var entry models.AuditLog
	db.Order("id DESC").First(&entry)

	if err := UndoLog(entry.ID, 1, "Admin"); !errors.Is(err, ErrNotUndoable) {
		t.Fatalf("err = %v, want ErrNotUndoable", err)
	}
}
