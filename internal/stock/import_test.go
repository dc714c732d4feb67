package stock

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"ppe-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestParseWorkbook(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Material", "Category", "Quantity"},
		{"Gloves", "Hands", 12},
		{"", "", ""},
		{" Helmet ", "Head", "3"},
	})

	rows, err := ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("ParseWorkbook: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Material != "Gloves" || rows[0].Quantity != 12 || rows[0].Line != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Material != "Helmet" || rows[1].Category != "Head" || rows[1].Quantity != 3 {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestParseWorkbookRejectsBadQuantity(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Gloves", "Hands", "lots"},
	})
	if _, err := ParseWorkbook(buf); err == nil {
		t.Fatal("expected an error for a non-numeric quantity")
	}
}

func upload(t *testing.T, app *fiber.App, wb *bytes.Buffer) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "receipt.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(wb.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/stocks/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("import request: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp, out
}

func importApp() *fiber.App {
	app := fiber.New()
	app.Post("/stocks/import", ImportStockHandler())
	return app
}

func TestImportStock(t *testing.T) {
	db := testutil.SetupDB(t)
	hands := testutil.SeedCategory(t, db, "Hands")
	gloves := testutil.SeedMaterial(t, db, "Gloves", hands.ID)
	testutil.SeedStock(t, db, gloves.ID, hands.ID, 2)

	resp, out := upload(t, importApp(), workbook(t, [][]any{
		{"Material", "Category", "Quantity"},
		{"gloves", "HANDS", 5},
		{"Visor", "Head", 1},
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if out["imported"] != float64(1) || out["units"] != float64(5) {
		t.Errorf("response = %v", out)
	}
	if unmatched, _ := out["unmatched"].([]any); len(unmatched) != 1 {
		t.Errorf("unmatched = %v, want one line", out["unmatched"])
	}
	if q := testutil.StockQuantity(t, db, gloves.ID, hands.ID); q != 7 {
		t.Fatalf("quantity = %d, want 7", q)
	}
}

func TestImportStockIsAllOrNothing(t *testing.T) {
	db := testutil.SetupDB(t)
	hands := testutil.SeedCategory(t, db, "Hands")
	gloves := testutil.SeedMaterial(t, db, "Gloves", hands.ID)
	mittens := testutil.SeedMaterial(t, db, "Mittens", hands.ID)
	testutil.SeedStock(t, db, gloves.ID, hands.ID, 3)
	testutil.SeedStock(t, db, mittens.ID, hands.ID, 3)

	testutil.FailStockUpdates(t, db, 1, errors.New("disk full"))

	resp, _ := upload(t, importApp(), workbook(t, [][]any{
		{"Gloves", "Hands", 4},
		{"Mittens", "Hands", 4},
	}))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	for _, id := range []uint{gloves.ID, mittens.ID} {
		if q := testutil.StockQuantity(t, db, id, hands.ID); q != 3 {
			t.Errorf("material %d quantity = %d, want 3", id, q)
		}
	}
}
