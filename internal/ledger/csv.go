// Package ledger writes extracted cheque records to tabular files.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spherical/cheque-extractor/internal/domain"
)

// CSVWriter appends cheque records to a CSV ledger. Every Append is flushed so
// the file on disk is a valid ledger after each row.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
	rows   int
}

// NewCSVWriter writes the ledger to w. If w is an io.Closer, Close closes it.
func NewCSVWriter(w io.Writer) *CSVWriter {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw
}

// CreateCSV truncates or creates the ledger file at path.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("Failed to create ledger %s", path), err)
	}
	return NewCSVWriter(f), nil
}

// WriteHeader writes the fixed column header.
func (c *CSVWriter) WriteHeader() error {
	return c.write(domain.LedgerColumns)
}

// Append writes one record as a row.
func (c *CSVWriter) Append(rec domain.ChequeRecord) error {
	if err := c.write(rec.Row()); err != nil {
		return err
	}
	c.rows++
	return nil
}

// Rows returns the number of records appended so far.
func (c *CSVWriter) Rows() int {
	return c.rows
}

func (c *CSVWriter) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return domain.IOError("Failed to write ledger row", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return domain.IOError("Failed to flush ledger", err)
	}
	return nil
}

// Close flushes and closes the underlying file, if any.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return domain.IOError("Failed to close ledger", err)
	}
	return nil
}

// Table is a ledger read back from disk.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV reads a ledger. The header must match the fixed column schema and
// every row must have exactly one cell per column.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.LedgerColumns)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, domain.ValidationError("Failed to parse ledger", err)
	}
	if len(records) == 0 {
		return nil, domain.ValidationError("Ledger is empty", nil)
	}

	header := records[0]
	for i, col := range domain.LedgerColumns {
		if header[i] != col {
			return nil, domain.ValidationError(
				fmt.Sprintf("Unexpected ledger column %d: got %q, want %q", i+1, header[i], col), nil)
		}
	}

	return &Table{Header: header, Rows: records[1:]}, nil
}

// ReadCSVFile opens and reads the ledger at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("Failed to open ledger %s", path), err)
	}
	defer f.Close()
	return ReadCSV(f)
}
