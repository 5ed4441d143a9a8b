package domain

import "context"

// Rasterizer renders the first page of a PDF as JPEG bytes
type Rasterizer interface {
	// RenderFirstPage returns an error matching ErrNoRenderablePage when the
	// document yields no page.
	RenderFirstPage(ctx context.Context, pdfPath string) ([]byte, error)
}

// Extractor performs one request/response exchange with the vision model
type Extractor interface {
	// Complete returns the raw content of the first completion choice
	Complete(ctx context.Context, jpeg []byte) (string, error)
}

// LedgerWriter persists successfully extracted records
type LedgerWriter interface {
	WriteHeader() error
	Append(rec ChequeRecord) error
	Close() error
}
