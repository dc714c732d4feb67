package sheet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"ppe-backend/internal/models"
	"ppe-backend/internal/testutil"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(Data{
		AttributionID:      1,
		Date:               time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		RegistrationNumber: "M-001",
		EmployeeName:       "Dupont Jérôme",
		Items:              []Item{{Description: "Safety gloves", Category: "Hands", RenewalFrequency: "6 months"}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output does not look like a PDF: %q", out[:8])
	}
}

func seedAttribution(t *testing.T, db *gorm.DB) models.Attribution {
	t.Helper()
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Safety gloves", cat.ID)
	emp := testutil.SeedEmployee(t, db, "M-001", "Jean", "Dupont")
	asg := testutil.SeedAssignment(t, db, emp.ID, mat.ID, time.Now())

	a := models.Attribution{AssignmentID: asg.ID, Date: time.Now()}
	if err := db.Omit(clause.Associations).Create(&a).Error; err != nil {
		t.Fatalf("create attribution: %v", err)
	}
	if err := db.Table("attribution_materials").Create(map[string]any{
		"attribution_id": a.ID,
		"material_id":    mat.ID,
	}).Error; err != nil {
		t.Fatalf("link material: %v", err)
	}
	return a
}

func TestGenerateStoresAndReplaces(t *testing.T) {
	db := testutil.SetupDB(t)
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	svc := NewService(db, storage)
	a := seedAttribution(t, db)
	ctx := context.Background()

	if _, _, err := svc.Open(ctx, a.ID); !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("Open before generate err = %v, want ErrSheetNotFound", err)
	}

	first, err := svc.Generate(ctx, a.ID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.Format != "PDF" || first.Path == "" {
		t.Fatalf("sheet = %+v", first)
	}

	second, err := svc.Generate(ctx, a.ID)
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("regenerate created a new row: %d vs %d", second.ID, first.ID)
	}
	if second.Path == first.Path {
		t.Errorf("regenerate kept the old path %s", first.Path)
	}
	if c := testutil.Count(t, db, &models.AttributionSheet{}); c != 1 {
		t.Fatalf("sheet rows = %d, want 1", c)
	}
	if _, err := storage.Open(ctx, first.Path); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("replaced sheet still stored: err = %v", err)
	}

	rc, sheet, err := svc.Open(ctx, a.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatal("stored object is not a PDF")
	}
	if sheet.Path != second.Path {
		t.Errorf("opened %s, want %s", sheet.Path, second.Path)
	}
}

func TestGenerateUnknownAttribution(t *testing.T) {
	db := testutil.SetupDB(t)
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	if _, err := NewService(db, storage).Generate(context.Background(), 42); !errors.Is(err, ErrAttributionNotFound) {
		t.Fatalf("err = %v, want ErrAttributionNotFound", err)
	}
}

func TestLocalStorageMissingKey(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if _, err := storage.Open(context.Background(), "sheets/none.pdf"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestGenerateDiscardsObjectWhenSaveFails(t *testing.T) {
	db := testutil.SetupDB(t)
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	a := seedAttribution(t, db)

	const name = "test:fail_sheet_save"
	err = db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "attribution_sheets" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })

	if _, err := NewService(db, storage).Generate(context.Background(), a.ID); err == nil {
		t.Fatal("Generate succeeded, want an error")
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("orphaned objects left behind: %v", files)
	}
}
