package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Role     string `json:"role" validate:"oneof=admin warehouse"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Email: "nope", Date: "12/01/2025", Role: "boss"})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	want := map[string]string{
		"name":     "is required",
		"email":    "must be a valid email address",
		"quantity": "must be greater than 0",
		"date":     "must be a date formatted as 2006-01-02",
		"role":     "must be one of: admin warehouse",
	}
	for field, msg := range want {
		if verr.Fields[field] != msg {
			t.Errorf("field %s: got %q, want %q", field, verr.Fields[field], msg)
		}
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	ok := sample{Name: "Gloves", Email: "a@b.co", Quantity: 3, Date: "2025-04-13", Role: "admin"}
	if err := Struct(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
