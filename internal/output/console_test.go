package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kafbench/kafbench/internal/metrics"
)

func sampleSnapshot() *metrics.Snapshot {
	eng := metrics.NewEngine()
	eng.RecordUnit(10, 5*time.Millisecond)
	eng.RecordUnit(10, 7*time.Millisecond)
	return eng.GetSnapshot()
}

func TestSummaryContainsTotals(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Summary("bench", true, sampleSnapshot())
	out := buf.String()

	for _, want := range []string{
		"Produce benchmark results",
		"bench",
		"transaction groups",
		"Records sent",
		"20",
		"Per-unit latency",
		"OK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryReportsFailures(t *testing.T) {
	eng := metrics.NewEngine()
	eng.RecordUnit(1, time.Millisecond)
	eng.RecordFailure()

	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.Summary("bench", false, eng.GetSnapshot())
	out := buf.String()

	if !strings.Contains(out, "single records") {
		t.Errorf("summary missing mode line:\n%s", out)
	}
	if !strings.Contains(out, "FAILED") {
		t.Errorf("summary should flag failures:\n%s", out)
	}
}

func TestNonTerminalWriterDisablesColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.Summary("bench", false, sampleSnapshot())

	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected no ANSI escapes when writing to a buffer")
	}
}
