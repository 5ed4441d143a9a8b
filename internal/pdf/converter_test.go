package pdf

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cheque-extractor/internal/domain"
)

// minimalPDF loads the shared one-page PDF fixture.
func minimalPDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "one_page.pdf"))
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	c, err := NewConverter(72, DefaultQuality, domain.NopLogger())
	require.NoError(t, err)
	return c
}

func TestNewConverter_RejectsBadSettings(t *testing.T) {
	_, err := NewConverter(DefaultDPI, 0, domain.NopLogger())
	assert.Error(t, err)

	_, err = NewConverter(10, DefaultQuality, domain.NopLogger())
	assert.Error(t, err)
}

func TestRenderFirstPage_ProducesJPEG(t *testing.T) {
	path := writeFile(t, "cheque.pdf", minimalPDF(t))
	dir := filepath.Dir(path)

	data, err := newTestConverter(t).RenderFirstPage(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	// rendering leaves nothing next to the source
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRenderFirstPage_NoImageOutcomes(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "corrupt document",
			path: func(t *testing.T) string { return writeFile(t, "broken.pdf", []byte("not a pdf at all")) },
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeFile(t, "empty.pdf", nil) },
		},
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.pdf") },
		},
		{
			name: "wrong extension",
			path: func(t *testing.T) string { return writeFile(t, "cheque.txt", minimalPDF(t)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := newTestConverter(t).RenderFirstPage(context.Background(), tt.path(t))
			require.Error(t, err)
			assert.Nil(t, data)
			assert.True(t, errors.Is(err, domain.ErrNoRenderablePage), "got %v", err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeRasterization))
		})
	}
}

func TestRenderFirstPage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestConverter(t).RenderFirstPage(ctx, writeFile(t, "cheque.pdf", minimalPDF(t)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidator(t *testing.T) {
	v := NewValidator(domain.NopLogger())

	assert.Error(t, v.ValidatePDFPath(""))
	assert.Error(t, v.ValidatePDFPath(t.TempDir()))
	assert.NoError(t, v.ValidatePDFPath(writeFile(t, "UPPER.PDF", minimalPDF(t))))

	assert.NoError(t, v.ValidateQuality(85))
	assert.Error(t, v.ValidateQuality(101))
	assert.NoError(t, v.ValidateDPI(200))
	assert.Error(t, v.ValidateDPI(601))
}
