// Package testutil wires an in-memory sqlite database and HTTP helpers for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ppe-backend/internal/config"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const JWTSecret = "test-secret-0123456789abcdef0123456789"

// SetupDB opens a fresh in-memory database, migrates it and installs it as database.DB.
// The pool holds a single connection, so concurrent transactions are serialized.
func SetupDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

func Config() *config.Config {
	return &config.Config{
		HTTPPort:               "0",
		JWTSecret:              JWTSecret,
		CORSOrigins:            "http://localhost:5173",
		SessionCookieName:      "ppe_session",
		SessionTTL:             time.Hour,
		LogLevel:               "error",
		LogFormat:              "console",
		CriticalStockThreshold: 5,
	}
}

func CreateUser(t testing.TB, db *gorm.DB, role models.Role, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{
		FirstName:    "Test",
		LastName:     string(role),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func SeedCategory(t testing.TB, db *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func SeedMaterial(t testing.TB, db *gorm.DB, description string, categoryID uint) models.Material {
	t.Helper()
	m := models.Material{Description: description, CategoryID: categoryID, RenewalFrequency: "yearly"}
	if err := db.Omit("Category").Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	return m
}

func SeedEmployee(t testing.TB, db *gorm.DB, registration, first, last string) models.Employee {
	t.Helper()
	e := models.Employee{RegistrationNumber: registration, FirstName: first, LastName: last}
	if err := db.Omit("User").Create(&e).Error; err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return e
}

func SeedStock(t testing.TB, db *gorm.DB, materialID, categoryID uint, quantity int) models.StockEntry {
	t.Helper()
	s := models.StockEntry{MaterialID: materialID, CategoryID: categoryID, Quantity: quantity}
	if err := db.Omit("Material", "Category").Create(&s).Error; err != nil {
		t.Fatalf("create stock: %v", err)
	}
	return s
}

func SeedAssignment(t testing.TB, db *gorm.DB, employeeID, materialID uint, date time.Time) models.Assignment {
	t.Helper()
	a := models.Assignment{EmployeeID: employeeID, MaterialID: materialID, Date: date}
	if err := db.Omit("Employee", "Material", "Attribution").Create(&a).Error; err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a
}

// EmptyStockBeforeUpdate makes the next stock update see every stock row already at zero, as if
// another writer had taken the last units after the caller read them. It fires once.
func EmptyStockBeforeUpdate(t testing.TB, db *gorm.DB) {
	t.Helper()
	const name = "testutil:empty_stock"

	fired := false
	err := db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "stock_entries" {
			return
		}
		fired = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, "UPDATE stock_entries SET quantity = 0"); err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Update().Remove(name) })
}

// FailStockUpdates makes every stock update after the first n fail with err.
func FailStockUpdates(t testing.TB, db *gorm.DB, n int, err error) {
	t.Helper()
	const name = "testutil:fail_stock"

	seen := 0
	regErr := db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != "stock_entries" {
			return
		}
		seen++
		if seen > n {
			_ = tx.AddError(err)
		}
	})
	if regErr != nil {
		t.Fatalf("register callback: %v", regErr)
	}
	t.Cleanup(func() { _ = db.Callback().Update().Remove(name) })
}

// StockQuantity reads the quantity straight from the table, -1 when the row is missing.
func StockQuantity(t testing.TB, db *gorm.DB, materialID, categoryID uint) int {
	t.Helper()
	var s models.StockEntry
	err := db.Where("material_id = ? AND category_id = ?", materialID, categoryID).First(&s).Error
	if database.IsNotFound(err) {
		return -1
	}
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return s.Quantity
}

func Count(t testing.TB, db *gorm.DB, model any, query ...any) int64 {
	t.Helper()
	q := db.Model(model)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// DoRequest sends a JSON request through app and decodes the JSON response body, if any.
func DoRequest(t testing.TB, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp, out
}

// DecodeList sends a request expecting a JSON array.
func DecodeList(t testing.TB, app *fiber.App, path, token string) (*http.Response, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var out []map[string]any
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp, out
}
