package pdf

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/cheque-extractor/internal/domain"
)

const (
	DefaultDPI     = 200
	DefaultQuality = 85
)

// Converter renders the first page of a PDF to JPEG bytes using go-fitz.
// Nothing touches the disk besides reading the source document.
type Converter struct {
	dpi       int
	quality   int
	validator *Validator
	logger    *domain.Logger
}

// NewConverter creates a new PDF converter instance
func NewConverter(dpi, quality int, logger *domain.Logger) (*Converter, error) {
	if logger == nil {
		logger = domain.DefaultLogger
	}
	validator := NewValidator(logger)
	if err := validator.ValidateDPI(dpi); err != nil {
		return nil, err
	}
	if err := validator.ValidateQuality(quality); err != nil {
		return nil, err
	}
	return &Converter{
		dpi:       dpi,
		quality:   quality,
		validator: validator,
		logger:    logger.WithPrefix("pdf"),
	}, nil
}

// RenderFirstPage renders page one of pdfPath as a JPEG.
// Any failure to produce an image is reported as a rasterization error that
// matches domain.ErrNoRenderablePage.
func (c *Converter) RenderFirstPage(ctx context.Context, pdfPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, domain.RasterizationError("invalid document", err)
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.RasterizationError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.RasterizationError("PDF has no pages", nil)
	}
	c.logger.Debug("Rendering page 1 of %d from %s at %d dpi", pageCount, pdfPath, c.dpi)

	img, err := doc.ImageDPI(0, float64(c.dpi))
	if err != nil {
		return nil, domain.RasterizationError("failed to render page 1", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, domain.RasterizationError("failed to encode page 1 as JPG", err)
	}

	bounds := img.Bounds()
	c.logger.Debug("Rendered %s: %dx%d, %d bytes", pdfPath, bounds.Dx(), bounds.Dy(), buf.Len())

	return buf.Bytes(), nil
}
