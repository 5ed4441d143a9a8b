package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/cheque-extractor/internal/domain"
)

const (
	minDPI = 36
	maxDPI = 600

	// Scans above this size still render; they are only reported.
	largeScanBytes = 100 << 20
)

// Validator checks rasterizer inputs before fitz sees them.
type Validator struct {
	logger *domain.Logger
}

// NewValidator creates a validator that logs through logger.
func NewValidator(logger *domain.Logger) *Validator {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	return &Validator{logger: logger}
}

// ValidatePDFPath reports a ValidationError unless path names a readable
// regular file with a .pdf extension (any case).
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("document path is empty", nil)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return domain.ValidationError(fmt.Sprintf("document not found: %s", path), err)
	case err != nil:
		return domain.ValidationError(fmt.Sprintf("cannot stat document: %s", path), err)
	case info.IsDir():
		return domain.ValidationError(fmt.Sprintf("document is a directory: %s", path), nil)
	}

	if ext := filepath.Ext(path); !strings.EqualFold(ext, ".pdf") {
		return domain.ValidationError(fmt.Sprintf("document %s has extension %q, want .pdf", filepath.Base(path), ext), nil)
	}

	if info.Size() > largeScanBytes {
		v.logger.Warn("%s is %d MB, rasterizing may be slow", filepath.Base(path), info.Size()>>20)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("document not readable: %s", path), err)
	}
	return f.Close()
}

// ValidateQuality checks the JPEG quality setting.
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("jpeg quality must be in [1,100], got %d", quality), nil)
	}
	return nil
}

// ValidateDPI checks the rendering resolution.
func (v *Validator) ValidateDPI(dpi int) error {
	if dpi < minDPI || dpi > maxDPI {
		return domain.ValidationError(fmt.Sprintf("dpi must be in [%d,%d], got %d", minDPI, maxDPI, dpi), nil)
	}
	return nil
}
