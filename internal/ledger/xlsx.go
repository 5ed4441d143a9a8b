package ledger

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/spherical/cheque-extractor/internal/domain"
)

// SheetName is the worksheet the XLSX mirror writes to.
const SheetName = "Cheques"

// columnWidths by ledger column.
var columnWidths = []float64{12, 12, 10, 24, 24, 24, 28, 18, 16, 16, 10, 40}

// XLSXWriter mirrors the ledger into a workbook. Rows are kept in memory and
// the workbook is written to disk on Close.
type XLSXWriter struct {
	path string
	file *excelize.File
	row  int
}

// NewXLSXWriter prepares a workbook that will be saved to path.
func NewXLSXWriter(path string) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, domain.IOError("Failed to name worksheet", err)
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetName, col, col, w)
	}

	return &XLSXWriter{path: path, file: f, row: 1}, nil
}

// WriteHeader writes the fixed column header to the first row.
func (x *XLSXWriter) WriteHeader() error {
	x.row = 1
	return x.writeRow(domain.LedgerColumns)
}

// Append writes one record to the next row.
func (x *XLSXWriter) Append(rec domain.ChequeRecord) error {
	return x.writeRow(rec.Row())
}

func (x *XLSXWriter) writeRow(cells []string) error {
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return domain.IOError("Failed to address worksheet row", err)
	}
	if err := x.file.SetSheetRow(SheetName, cell, &values); err != nil {
		return domain.IOError(fmt.Sprintf("Failed to write worksheet row %d", x.row), err)
	}
	x.row++
	return nil
}

// Close saves the workbook.
func (x *XLSXWriter) Close() error {
	defer x.file.Close()
	if err := x.file.SaveAs(x.path); err != nil {
		return domain.IOError(fmt.Sprintf("Failed to save workbook %s", x.path), err)
	}
	return nil
}

// ReadXLSX returns the rows of the ledger worksheet in the workbook at path.
func ReadXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("Failed to open workbook %s", path), err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, domain.IOError("Failed to read worksheet", err)
	}
	return rows, nil
}
