package writers

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*ChartWriter)(nil)

// ChartWriter draws one latency timeline per target as
// <Dir>/latency_target_<n>.pdf. The stress series is plotted in request
// order; the baseline series is overlaid for comparison. Targets whose
// stress phase has no latency samples get no chart.
type ChartWriter struct {
	dir   string
	mu    sync.Mutex
	files []string
}

// NewChartWriter creates a chart writer saving into dir, creating it if
// needed. An empty dir means the working directory.
func NewChartWriter(dir string) (*ChartWriter, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chart: create %s: %w", dir, err)
	}
	return &ChartWriter{dir: dir}, nil
}

// ChartName returns the file name used for target number n.
func ChartName(n int) string {
	return fmt.Sprintf("latency_target_%d.pdf", n)
}

// Write draws the chart for a verdict event.
func (cw *ChartWriter) Write(event events.Event) error {
	v, ok := event.(*events.VerdictEvent)
	if !ok || len(v.Stress.Latencies) == 0 {
		return nil
	}

	path := filepath.Join(cw.dir, ChartName(v.TargetIndex))
	pdf := renderTimeline(fmt.Sprintf("target_%d", v.TargetIndex), v.Target, v.Baseline, v.Stress)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("chart: write %s: %w", path, err)
	}

	cw.mu.Lock()
	cw.files = append(cw.files, path)
	cw.mu.Unlock()
	return nil
}

// Files returns the charts written so far.
func (cw *ChartWriter) Files() []string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return append([]string(nil), cw.files...)
}

// Flush is a no-op: each chart is written when its verdict arrives.
func (cw *ChartWriter) Flush() error { return nil }

// Close is a no-op.
func (cw *ChartWriter) Close() error { return nil }

// SupportsEvent returns true for verdict events only.
func (cw *ChartWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeVerdict
}

// Plot area in mm on an A4 landscape page.
const (
	plotLeft   = 25.0
	plotTop    = 30.0
	plotWidth  = 245.0
	plotHeight = 145.0
	gridLines  = 5
)

func renderTimeline(name, target string, baseline, stress probe.PhaseResult) *gofpdf.Fpdf {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Latency Timeline - "+name, false)
	pdf.SetCreator("dvat", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, "Latency Timeline - "+name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, target, "", 1, "C", false, 0, "")

	count := max(len(stress.Latencies), len(baseline.Latencies))
	peak := math.Max(maxOf(stress.Latencies), maxOf(baseline.Latencies))
	if peak <= 0 {
		peak = 1
	}
	peak = niceCeil(peak)

	drawAxes(pdf, count, peak)
	if len(baseline.Latencies) > 0 {
		pdf.SetDrawColor(148, 163, 184)
		drawSeries(pdf, baseline.Latencies, count, peak)
	}
	pdf.SetDrawColor(46, 134, 222)
	drawSeries(pdf, stress.Latencies, count, peak)

	drawLegend(pdf, baseline, stress)
	return pdf
}

func drawAxes(pdf *gofpdf.Fpdf, count int, peak float64) {
	bottom := plotTop + plotHeight

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetLineWidth(0.1)
	for i := 0; i <= gridLines; i++ {
		y := bottom - plotHeight*float64(i)/gridLines
		pdf.SetDrawColor(220, 220, 220)
		pdf.Line(plotLeft, y, plotLeft+plotWidth, y)
		label := fmt.Sprintf("%.2f", peak*float64(i)/gridLines)
		pdf.Text(plotLeft-2-pdf.GetStringWidth(label), y+1, label)
	}
	for i := 0; i <= gridLines; i++ {
		x := plotLeft + plotWidth*float64(i)/gridLines
		pdf.SetDrawColor(220, 220, 220)
		pdf.Line(x, plotTop, x, bottom)
		label := fmt.Sprintf("%d", int(math.Round(float64(max(count-1, 0))*float64(i)/gridLines)))
		pdf.Text(x-pdf.GetStringWidth(label)/2, bottom+5, label)
	}

	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.3)
	pdf.Line(plotLeft, plotTop, plotLeft, bottom)
	pdf.Line(plotLeft, bottom, plotLeft+plotWidth, bottom)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(plotLeft+plotWidth/2-10, bottom+12, "Request #")
	pdf.TransformBegin()
	pdf.TransformRotate(90, plotLeft-14, plotTop+plotHeight/2+12)
	pdf.Text(plotLeft-14, plotTop+plotHeight/2+12, "Latency (s)")
	pdf.TransformEnd()
}

// drawSeries plots ys against their index scaled to count points.
func drawSeries(pdf *gofpdf.Fpdf, ys []float64, count int, peak float64) {
	if len(ys) == 0 {
		return
	}
	step := plotWidth
	if count > 1 {
		step = plotWidth / float64(count-1)
	}
	bottom := plotTop + plotHeight

	pdf.SetLineWidth(0.4)
	px, py := plotLeft, bottom-plotHeight*ys[0]/peak
	if len(ys) == 1 {
		pdf.Circle(px, py, 0.8, "D")
		return
	}
	for i := 1; i < len(ys); i++ {
		x := plotLeft + step*float64(i)
		y := bottom - plotHeight*ys[i]/peak
		pdf.Line(px, py, x, y)
		px, py = x, y
	}
}

func drawLegend(pdf *gofpdf.Fpdf, baseline, stress probe.PhaseResult) {
	y := plotTop + plotHeight + 20
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetLineWidth(0.8)

	pdf.SetDrawColor(46, 134, 222)
	pdf.Line(plotLeft, y, plotLeft+10, y)
	pdf.SetTextColor(60, 60, 60)
	pdf.Text(plotLeft+12, y+1, fmt.Sprintf("%s: %d samples, avg %.3fs", stress.Phase, len(stress.Latencies), stress.AverageLatency))

	if len(baseline.Latencies) > 0 {
		pdf.SetDrawColor(148, 163, 184)
		pdf.Line(plotLeft+110, y, plotLeft+120, y)
		pdf.Text(plotLeft+122, y+1, fmt.Sprintf("%s: %d samples, avg %.3fs", baseline.Phase, len(baseline.Latencies), baseline.AverageLatency))
	}
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}
