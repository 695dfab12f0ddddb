package render

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

const xlsxSheet = "Packing Instructions"

// XLSX renders a single-sheet workbook
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSX) Extension() string { return "xlsx" }

// Render writes one label/value row per fact
func (XLSX) Render(doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	facts := doc.Facts
	rows := [][2]string{
		{"FACTORY PACKING INSTRUCTIONS", "CONFIDENTIAL"},
		{"Company", doc.CompanyName},
		{"Internal PO Number", doc.InternalPO},
		{"Factory", doc.Factory()},
		{"Date Generated", doc.GeneratedAt.Format("2006-01-02")},
		{"", ""},
		{"Vendor Style", display(facts.VendorStyle)},
		{fmt.Sprintf("Colors (%d variants)", len(facts.Colors)), joinOrNA(facts.DisplayColors())},
		{"Sizes", joinOrNA(facts.DisplaySizes())},
		{"Units Per Carton", display(facts.UnitsPerCarton)},
		{"Total Cartons", display(facts.TotalCartons)},
		{"Total Units", display(facts.TotalUnits)},
		{"Prepack Ratio", display(facts.PrepackRatio)},
		{"", ""},
		{"Carton Marking", doc.CartonMarking()},
		{"Redacted Fields", doc.RedactionNotice()},
	}

	write := func(col, row int, v string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellStr(xlsxSheet, cell, v)
	}
	for i, r := range rows {
		if err := write(1, i+1, r[0]); err != nil {
			return nil, fmt.Errorf("xlsx write: %w", err)
		}
		if err := write(2, i+1, r[1]); err != nil {
			return nil, fmt.Errorf("xlsx write: %w", err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(xlsxSheet, "A1", fmt.Sprintf("A%d", len(rows)), bold)
	}
	_ = f.SetColWidth(xlsxSheet, "A", "A", 28)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func joinOrNA(values []string) string {
	if len(values) == 0 {
		return resolver.NotAvailable
	}
	return strings.Join(values, ", ")
}
