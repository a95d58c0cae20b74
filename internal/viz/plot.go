// Package viz renders terminal magnitude plots and run summaries for
// result bundles.
package viz

import (
	"fmt"
	"math/cmplx"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/pipeline"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// MagnitudeRow extracts |m[row, :]|.
func MagnitudeRow(m *mat.CDense, row int) []float64 {
	_, cols := m.Dims()
	out := make([]float64, cols)
	for j := 0; j < cols; j++ {
		out[j] = cmplx.Abs(m.At(row, j))
	}
	return out
}

// TraceMagnitude extracts |tensor[i, j, :]| over time.
func TraceMagnitude(t *ris.Tensor, i, j int) []float64 {
	trace := t.Trace(i, j)
	out := make([]float64, len(trace))
	for k, v := range trace {
		out[k] = cmplx.Abs(v)
	}
	return out
}

// PlotRow renders a magnitude row as an ascii graph.
func PlotRow(m *mat.CDense, row int, caption string) string {
	return asciigraph.Plot(MagnitudeRow(m, row),
		asciigraph.Height(10),
		asciigraph.Caption(caption),
	)
}

// PlotTrace renders the time evolution of one tensor element.
func PlotTrace(t *ris.Tensor, i, j int, caption string) string {
	return asciigraph.Plot(TraceMagnitude(t, i, j),
		asciigraph.Height(10),
		asciigraph.Caption(caption),
	)
}

// Summary renders a styled panel describing a finished run.
func Summary(b *pipeline.Bundle) string {
	p := b.Params
	blocked := 0
	for _, v := range b.Mask {
		if v > 0 {
			blocked++
		}
	}
	rows := []struct{ label, value string }{
		{"carrier", fmt.Sprintf("%.2f GHz", p.CarrierHz/1e9)},
		{"array", fmt.Sprintf("%d x %d (M x N)", p.BSAntennas, p.RISElements)},
		{"samples", fmt.Sprintf("%d @ %.2g s", b.Tensor.T, p.Interval)},
		{"doppler", fmt.Sprintf("%.2f Hz", p.DopplerShift())},
		{"blocked samples", fmt.Sprintf("%d / %d", blocked, len(b.Mask))},
		{"seed", fmt.Sprintf("%d", p.Seed)},
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("STAR-RIS run"))
	sb.WriteByte('\n')
	for _, r := range rows {
		sb.WriteString(labelStyle.Render(r.label))
		sb.WriteString(valueStyle.Render(r.value))
		sb.WriteByte('\n')
	}
	return panelStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
