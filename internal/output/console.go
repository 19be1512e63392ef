// Package output renders benchmark results to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kafbench/kafbench/internal/metrics"
)

// ColorScheme defines the colors used for report elements.
type ColorScheme struct {
	Header    *color.Color
	Label     *color.Color
	Value     *color.Color
	Success   *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Header:    color.New(color.FgCyan, color.Bold),
		Label:     color.New(color.FgYellow),
		Value:     color.New(color.FgWhite),
		Success:   color.New(color.FgGreen, color.Bold),
		Error:     color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Header.DisableColor()
	scheme.Label.DisableColor()
	scheme.Value.DisableColor()
	scheme.Success.DisableColor()
	scheme.Error.DisableColor()
	scheme.Highlight.DisableColor()
	return scheme
}

// Printer writes human-readable benchmark reports.
type Printer struct {
	w      io.Writer
	scheme *ColorScheme
}

// NewPrinter builds a printer for w. Colors are disabled when noColor is
// set or when w is not a terminal.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	scheme := DefaultColorScheme()
	if noColor || !writerIsTerminal(w) {
		scheme = NoColorScheme()
	}
	return &Printer{w: w, scheme: scheme}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Summary prints the final report for one run.
func (p *Printer) Summary(topic string, transactional bool, snap *metrics.Snapshot) {
	p.scheme.Header.Fprintln(p.w, "Produce benchmark results")
	p.line("Topic", topic)
	mode := "single records"
	if transactional {
		mode = "transaction groups"
	}
	p.line("Mode", mode)
	p.line("Records sent", fmt.Sprintf("%d", snap.TotalRecords))
	p.line("Units completed", fmt.Sprintf("%d", snap.TotalUnits))
	if snap.Failures > 0 {
		p.scheme.Label.Fprintf(p.w, "  %-18s", "Failures")
		p.scheme.Error.Fprintf(p.w, "%d\n", snap.Failures)
	}
	p.line("Elapsed", snap.Elapsed.Round(time.Millisecond).String())
	p.line("Throughput", fmt.Sprintf("%.1f records/s", snap.RecordsPerS))
	if snap.BytesOut > 0 {
		p.line("Bytes out", formatBytes(snap.BytesOut))
	}

	if snap.Latency.Count > 0 {
		p.scheme.Header.Fprintln(p.w, "Per-unit latency")
		p.line("min", snap.Latency.Min.String())
		p.line("mean", snap.Latency.Mean.String())
		p.line("p50", snap.Latency.P50.String())
		p.line("p90", snap.Latency.P90.String())
		p.line("p95", snap.Latency.P95.String())
		p.line("p99", snap.Latency.P99.String())
		p.line("max", snap.Latency.Max.String())
	}

	if snap.Failures == 0 {
		p.scheme.Success.Fprintln(p.w, "OK")
	} else {
		p.scheme.Error.Fprintln(p.w, "FAILED")
	}
}

func (p *Printer) line(label, value string) {
	p.scheme.Label.Fprintf(p.w, "  %-18s", label)
	p.scheme.Value.Fprintf(p.w, "%s\n", value)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
