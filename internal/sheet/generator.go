package sheet

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

var months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type Item struct {
	Description      string
	Category         string
	RenewalFrequency string
}

// Data is what a hand-out sheet shows.
type Data struct {
	AttributionID      uint
	Date               time.Time
	RegistrationNumber string
	EmployeeName       string
	Items              []Item
}

const (
	itemColWidth  = 80.0
	monthColWidth = 16.0
	rowHeight     = 9.0
)

// Render lays out a landscape A4 sheet: employee header, the PPE handed out and a signature
// grid with one column per month.
func Render(d Data) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("PPE sheet #%d", d.AttributionID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "PPE hand-out sheet", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr("Registration number: "+d.RegistrationNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Employee: "+d.EmployeeName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Date: "+d.Date.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(itemColWidth, rowHeight, "PPE", "1", 0, "L", true, 0, "")
	for _, m := range months {
		pdf.CellFormat(monthColWidth, rowHeight, m, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range d.Items {
		label := it.Description
		if it.Category != "" {
			label += " (" + it.Category + ")"
		}
		if it.RenewalFrequency != "" {
			label += " / " + it.RenewalFrequency
		}
		pdf.CellFormat(itemColWidth, rowHeight, tr(label), "1", 0, "L", false, 0, "")
		for range months {
			pdf.CellFormat(monthColWidth, rowHeight, "", "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Employee signature in the month column on each renewal.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render sheet: %w", err)
	}
	return buf.Bytes(), nil
}
