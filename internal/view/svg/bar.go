// Package svg renders small inline charts for server-rendered pages.
package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bar is one labelled value. Color overrides the chart default.
type Bar struct {
	Label string
	Value float64
	Color string
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	Color       string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// Defaults for dashboard charts.
const (
	DefaultWidth   = 480
	DefaultHeight  = 220
	DefaultPadding = 28.0
	DefaultTicks   = 4
)

// Bars renders a vertical bar chart of non-negative values with the value
// printed above each bar.
func Bars(width, height int, bars []Bar, opts BarOpts) (template.HTML, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("svg: at least one bar required")
	}
	for _, bar := range bars {
		if bar.Value < 0 || math.IsNaN(bar.Value) || math.IsInf(bar.Value, 0) {
			return "", fmt.Errorf("svg: bar %q has invalid value %v", bar.Label, bar.Value)
		}
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}

	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")
	color := fallback(opts.Color, "#2563eb")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	maxVal := 0.0
	for _, bar := range bars {
		maxVal = math.Max(maxVal, bar.Value)
	}
	if almostEqual(maxVal, 0) {
		maxVal = 1
	}
	scale := chartHeight / maxVal
	bottom := padding + chartHeight
	slot := chartWidth / float64(len(bars))
	barWidth := slot * 0.6

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(&b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Bar chart")))
	fmt.Fprintf(&b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Bar comparison")))

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		y := bottom - ratio*chartHeight
		fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, formatTick(maxVal*ratio))
	}

	fmt.Fprintf(&b, "<g stroke=\"%s\" aria-hidden=\"true\">", axisColor)
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, bottom)
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, bottom, padding+chartWidth, bottom)
	b.WriteString("</g>")

	for i, bar := range bars {
		h := bar.Value * scale
		x := padding + float64(i)*slot + (slot-barWidth)/2
		y := bottom - h
		label := template.HTMLEscapeString(bar.Label)
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s: %s\"></rect>", x, y, barWidth, h, fallback(bar.Color, color), label, formatTick(bar.Value))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x+barWidth/2, y-4, axisColor, formatTick(bar.Value))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x+barWidth/2, bottom+14, axisColor, label)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	switch abs := math.Abs(v); {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}
