package stock

import (
	"context"
	"errors"
	"testing"

	"ppe-backend/internal/testutil"

	"github.com/xuri/excelize/v2"
)

func TestEnsureIsIdempotent(t *testing.T) {
	db := testutil.SetupDB(t)
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Gloves", cat.ID)
	l := NewLedger(db)
	ctx := context.Background()

	first, err := l.Ensure(ctx, mat.ID, cat.ID)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	second, err := l.Ensure(ctx, mat.ID, cat.ID)
	if err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if first.ID != second.ID || second.Quantity != 0 {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
}

func TestAdd(t *testing.T) {
	db := testutil.SetupDB(t)
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Gloves", cat.ID)
	l := NewLedger(db)
	ctx := context.Background()

	if _, err := l.Add(ctx, mat.ID, cat.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Add(0) err = %v, want ErrInvalidAmount", err)
	}

	row, err := l.Add(ctx, mat.ID, cat.ID, 3)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if row.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", row.Quantity)
	}
	row, err = l.Add(ctx, mat.ID, cat.ID, 4)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if row.Quantity != 7 {
		t.Fatalf("quantity = %d, want 7", row.Quantity)
	}
}

func TestDecrement(t *testing.T) {
	db := testutil.SetupDB(t)
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Gloves", cat.ID)
	testutil.SeedStock(t, db, mat.ID, cat.ID, 2)
	l := NewLedger(db)
	ctx := context.Background()

	for want := 1; want >= 0; want-- {
		got, err := l.Decrement(ctx, mat.ID, cat.ID)
		if err != nil {
			t.Fatalf("Decrement: %v", err)
		}
		if got != want {
			t.Fatalf("remaining = %d, want %d", got, want)
		}
	}

	if _, err := l.Decrement(ctx, mat.ID, cat.ID); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("err = %v, want ErrInsufficient", err)
	}
	if q := testutil.StockQuantity(t, db, mat.ID, cat.ID); q != 0 {
		t.Fatalf("quantity = %d, want 0", q)
	}
}

func TestDecrementWithoutRow(t *testing.T) {
	db := testutil.SetupDB(t)
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Gloves", cat.ID)

	if _, err := NewLedger(db).Decrement(context.Background(), mat.ID, cat.ID); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("err = %v, want ErrInsufficient", err)
	}
	if q := testutil.StockQuantity(t, db, mat.ID, cat.ID); q != -1 {
		t.Fatalf("a stock row was created: quantity %d", q)
	}
}

func TestDecrementRechecksQuantityAtWrite(t *testing.T) {
	db := testutil.SetupDB(t)
	cat := testutil.SeedCategory(t, db, "Hands")
	mat := testutil.SeedMaterial(t, db, "Gloves", cat.ID)
	testutil.SeedStock(t, db, mat.ID, cat.ID, 1)
	l := NewLedger(db)
	ctx := context.Background()

	if q, err := l.Quantity(ctx, mat.ID, cat.ID); err != nil || q != 1 {
		t.Fatalf("Quantity = %d, %v; want 1", q, err)
	}

	// The last unit goes elsewhere between the read above and the decrement.
	testutil.EmptyStockBeforeUpdate(t, db)

	if _, err := l.Decrement(ctx, mat.ID, cat.ID); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("err = %v, want ErrInsufficient", err)
	}
	if q := testutil.StockQuantity(t, db, mat.ID, cat.ID); q != 0 {
		t.Fatalf("quantity = %d, want 0", q)
	}
}

func TestListAndCritical(t *testing.T) {
	db := testutil.SetupDB(t)
	hands := testutil.SeedCategory(t, db, "Hands")
	head := testutil.SeedCategory(t, db, "Head")
	gloves := testutil.SeedMaterial(t, db, "Gloves", hands.ID)
	helmet := testutil.SeedMaterial(t, db, "Helmet", head.ID)
	testutil.SeedStock(t, db, gloves.ID, hands.ID, 10)
	testutil.SeedStock(t, db, helmet.ID, head.ID, 2)
	l := NewLedger(db)
	ctx := context.Background()

	all, err := l.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].Material.Description != "Gloves" || all[1].Category.Name != "Head" {
		t.Fatalf("unexpected rows %+v", all)
	}

	byMat, err := l.ByMaterial(ctx, helmet.ID)
	if err != nil || len(byMat) != 1 || byMat[0].Quantity != 2 {
		t.Fatalf("ByMaterial = %+v, %v", byMat, err)
	}

	critical, err := l.Critical(ctx, 5)
	if err != nil {
		t.Fatalf("Critical: %v", err)
	}
	if len(critical) != 1 || critical[0].MaterialID != helmet.ID {
		t.Fatalf("critical = %+v", critical)
	}

	if q, _ := l.Quantity(ctx, gloves.ID, head.ID); q != 0 {
		t.Fatalf("missing pair quantity = %d", q)
	}
}

func TestWriteWorkbookFlagsCriticalRows(t *testing.T) {
	db := testutil.SetupDB(t)
	hands := testutil.SeedCategory(t, db, "Hands")
	gloves := testutil.SeedMaterial(t, db, "Gloves", hands.ID)
	boots := testutil.SeedMaterial(t, db, "Boots", hands.ID)
	testutil.SeedStock(t, db, gloves.ID, hands.ID, 12)
	testutil.SeedStock(t, db, boots.ID, hands.ID, 1)

	rows, err := NewLedger(db).List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	buf, err := WriteWorkbook(rows, 5)
	if err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(got))
	}
	if got[0][0] != "Material" {
		t.Errorf("header = %v", got[0])
	}
	if got[1][0] != "Gloves" || len(got[1]) > 3 && got[1][3] != "" {
		t.Errorf("gloves row = %v", got[1])
	}
	if got[2][0] != "Boots" || len(got[2]) < 4 || got[2][3] != "yes" {
		t.Errorf("boots row = %v", got[2])
	}
}
