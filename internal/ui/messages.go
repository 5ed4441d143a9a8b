package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Init applies the color setting for all later output.
func Init(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

// SetOutput redirects messages. Used by commands that print into a buffer.
func SetOutput(out, errOut io.Writer) {
	stdout, stderr = out, errOut
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(stdout, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(stdout, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(stdout, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Section displays a section header.
func Section(title string) {
	color.New(color.Bold).Fprintf(stdout, "\n%s\n", title)
	fmt.Fprintf(stdout, "%s\n\n", strings.Repeat("=", len(title)))
}

// Table renders rows under header.
func Table(header []string, rows [][]string) {
	t := tablewriter.NewWriter(stdout)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.AppendBulk(rows)
	t.Render()
}

// KeyValue prints aligned label/value pairs.
func KeyValue(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	for _, p := range pairs {
		fmt.Fprintf(stdout, "  %-*s  %s\n", width+1, p[0]+":", p[1])
	}
}
