package attribution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ppe-backend/internal/models"
	"ppe-backend/internal/notify"
	"ppe-backend/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	processor *Processor
	admin     *models.User
	clerk     *models.User
	employee  models.Employee
	material  models.Material
	category  models.Category
}

func newFixture(t *testing.T, quantity int) *fixture {
	t.Helper()
	db := testutil.SetupDB(t)

	f := &fixture{db: db}
	f.admin = testutil.CreateUser(t, db, models.RoleAdmin, "admin@example.com")
	f.clerk = testutil.CreateUser(t, db, models.RoleWarehouse, "clerk@example.com")
	testutil.CreateUser(t, db, models.RoleDispatcher, "dispatch@example.com")

	f.category = testutil.SeedCategory(t, db, "Hands")
	f.material = testutil.SeedMaterial(t, db, "Safety gloves", f.category.ID)
	f.employee = testutil.SeedEmployee(t, db, "M-001", "Jean", "Dupont")
	if quantity >= 0 {
		testutil.SeedStock(t, db, f.material.ID, f.category.ID, quantity)
	}

	f.processor = NewProcessor(db, notify.NewEmitter(db, 5, nil))
	return f
}

func (f *fixture) assign(t *testing.T) models.Assignment {
	t.Helper()
	return testutil.SeedAssignment(t, f.db, f.employee.ID, f.material.ID, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
}

func (f *fixture) attribute(assignmentID uint) (*Result, error) {
	return f.processor.Attribute(context.Background(), Request{
		AssignmentID: assignmentID,
		Date:         time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		ActorID:      f.clerk.ID,
	})
}

func (f *fixture) notifications(t *testing.T, typ models.NotificationType) int64 {
	return testutil.Count(t, f.db, &models.Notification{}, "type = ?", typ)
}

func TestAttributeLastUnitRaisesCriticalStock(t *testing.T) {
	f := newFixture(t, 1)
	a := f.assign(t)

	res, err := f.attribute(a.ID)
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", res.Remaining)
	}
	if q := testutil.StockQuantity(t, f.db, f.material.ID, f.category.ID); q != 0 {
		t.Fatalf("stock = %d, want 0", q)
	}

	if c := testutil.Count(t, f.db, &models.Attribution{}, "assignment_id = ?", a.ID); c != 1 {
		t.Fatalf("attributions = %d, want 1", c)
	}
	if c := testutil.Count(t, f.db, &models.Attribution{}, "id = ? AND created_by = ?", res.Attribution.ID, f.clerk.ID); c != 1 {
		t.Fatal("created_by not recorded")
	}

	var linked []models.Material
	if err := f.db.Model(&res.Attribution).Association("Materials").Find(&linked); err != nil {
		t.Fatalf("load materials: %v", err)
	}
	if len(linked) != 1 || linked[0].ID != f.material.ID {
		t.Fatalf("linked materials = %+v", linked)
	}

	if c := f.notifications(t, models.NotificationAttribution); c != 2 {
		t.Errorf("success notices = %d, want 2", c)
	}
	if c := f.notifications(t, models.NotificationCriticalStock); c != 2 {
		t.Errorf("critical notices = %d, want 2", c)
	}
	if res.Notified != 4 {
		t.Errorf("Notified = %d, want 4", res.Notified)
	}
}

func TestAttributeNoCriticalNoticeAtThreshold(t *testing.T) {
	f := newFixture(t, 6)
	a := f.assign(t)

	res, err := f.attribute(a.ID)
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	if res.Remaining != 5 {
		t.Fatalf("remaining = %d, want 5", res.Remaining)
	}
	if c := f.notifications(t, models.NotificationCriticalStock); c != 0 {
		t.Errorf("critical notices = %d, want 0", c)
	}
	for _, u := range []*models.User{f.admin, f.clerk} {
		if c := testutil.Count(t, f.db, &models.Notification{}, "recipient_id = ?", u.ID); c != 1 {
			t.Errorf("user %d has %d notices, want 1", u.ID, c)
		}
	}
}

func TestAttributeOutOfStockWritesNothing(t *testing.T) {
	f := newFixture(t, 0)
	a := f.assign(t)

	if _, err := f.attribute(a.ID); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	// The emptying write shares the rolled-back transaction, so the unit comes back.
	if q := testutil.StockQuantity(t, f.db, f.material.ID, f.category.ID); q != 1 {
		t.Fatalf("stock = %d, want 1", q)
	}
	if c := testutil.Count(t, f.db, &models.Attribution{}); c != 0 {
		t.Fatalf("attributions = %d, want 0", c)
	}
	if c := testutil.Count(t, f.db, &models.Notification{}); c != 0 {
		t.Fatalf("notifications = %d, want 0", c)
	}
}

func TestAttributeWithoutStockRow(t *testing.T) {
	f := newFixture(t, -1)
	a := f.assign(t)

	if _, err := f.attribute(a.ID); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if c := testutil.Count(t, f.db, &models.Attribution{}); c != 0 {
		t.Fatalf("attributions = %d, want 0", c)
	}
}

func TestAttributeUnknownAssignment(t *testing.T) {
	f := newFixture(t, 3)

	if _, err := f.attribute(9999); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("err = %v, want ErrAssignmentNotFound", err)
	}
	if q := testutil.StockQuantity(t, f.db, f.material.ID, f.category.ID); q != 3 {
		t.Fatalf("stock = %d, want 3", q)
	}
}

func TestAttributeTwiceIsRejected(t *testing.T) {
	f := newFixture(t, 3)
	a := f.assign(t)

	if _, err := f.attribute(a.ID); err != nil {
		t.Fatalf("first Attribute: %v", err)
	}
	if _, err := f.attribute(a.ID); !errors.Is(err, ErrAlreadyAttributed) {
		t.Fatalf("err = %v, want ErrAlreadyAttributed", err)
	}
	if q := testutil.StockQuantity(t, f.db, f.material.ID, f.category.ID); q != 2 {
		t.Fatalf("stock = %d, want 2", q)
	}
}

func TestConcurrentAttributionsOfLastUnit(t *testing.T) {
	f := newFixture(t, 1)
	first := f.assign(t)
	second := f.assign(t)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range []uint{first.ID, second.ID} {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := f.attribute(id)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("successes = %d, insufficient = %d; want 1 and 1", ok, insufficient)
	}
	if q := testutil.StockQuantity(t, f.db, f.material.ID, f.category.ID); q != 0 {
		t.Fatalf("stock = %d, want 0", q)
	}
	if c := testutil.Count(t, f.db, &models.Attribution{}); c != 1 {
		t.Fatalf("attributions = %d, want 1", c)
	}
}

func TestAttributeLosesLastUnitToAnotherWriter(t *testing.T) {
	f := newFixture(t, 1)
	a := f.assign(t)
	testutil.EmptyStockBeforeUpdate(t, f.db)

	if _, err := f.attribute(a.ID); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	// The emptying write shares the rolled-back transaction, so the unit comes back.
	if q := testutil.StockQuantity(t, f.db, f.material.ID, f.category.ID); q != 1 {
		t.Fatalf("stock = %d, want 1", q)
	}
	if c := testutil.Count(t, f.db, &models.Attribution{}); c != 0 {
		t.Fatalf("attributions = %d, want 0", c)
	}
	if c := testutil.Count(t, f.db, &models.Notification{}); c != 0 {
		t.Fatalf("notifications = %d, want 0", c)
	}
}
