// Package ui provides terminal output for the cheque-extractor CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress receives per-document progress from the batch runner.
type Progress interface {
	Start(total int)
	Advance(current int, name string)
	Finish()
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Start(int)           {}
func (NopProgress) Advance(int, string) {}
func (NopProgress) Finish()             {}

// ProgressBar renders document progress to stderr.
type ProgressBar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a progress bar writing to os.Stderr.
func NewProgressBar() *ProgressBar {
	return &ProgressBar{out: os.Stderr}
}

// NewProgressBarTo creates a progress bar writing to out.
func NewProgressBarTo(out io.Writer) *ProgressBar {
	return &ProgressBar{out: out}
}

// Start sizes the bar for total documents.
func (p *ProgressBar) Start(total int) {
	out := p.out
	p.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Processing PDFs"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pdfs"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Advance moves the bar to current (1-based) and names the document.
func (p *ProgressBar) Advance(current int, name string) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("Processing PDF %d: %s", current, name))
	_ = p.bar.Set(current)
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
