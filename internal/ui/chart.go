package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// Number of y-axis labels the scale aims for.
const targetYLabels = 5

// series is one chart line.
type series struct {
	color  string
	bold   bool
	points []model.Point
}

// niceStep returns a step of 1, 2 or 5 times a power of ten that splits
// maxVal into about targetYLabels intervals.
func niceStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	raw := maxVal / targetYLabels
	exp := math.Floor(math.Log10(raw))
	pow := math.Pow(10, exp)
	var f float64
	switch frac := raw / pow; {
	case frac <= 1:
		f = 1
	case frac <= 2:
		f = 2
	case frac <= 5:
		f = 5
	default:
		f = 10
	}
	return f * pow
}

// yScale returns the y-axis ceiling and label step for data peaking at
// peak: 10% headroom, never below 10/s, rounded up to a whole step.
func yScale(peak float64) (ceil, step float64) {
	raw := math.Max(peak*1.1, 10)
	step = niceStep(raw)
	return math.Ceil(raw/step) * step, step
}

func formatRate(v float64) string {
	if v == math.Floor(v) {
		return fmt.Sprintf("%.0f/s", v)
	}
	return fmt.Sprintf("%.1f/s", v)
}

// columns places the known points of s on a width-wide grid covering
// [end-span, end]. Several points in one column keep the highest rate; gaps
// between two plotted columns are interpolated. Columns with nothing to show
// are NaN.
func columns(points []model.Point, width int, end time.Time, span time.Duration) []float64 {
	cols := make([]float64, width)
	for i := range cols {
		cols[i] = math.NaN()
	}
	if width < 1 || span <= 0 {
		return cols
	}
	start := end.Add(-span)
	for _, p := range points {
		if !p.Known || p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		x := int(math.Round(float64(p.Time.Sub(start)) / float64(span) * float64(width-1)))
		if math.IsNaN(cols[x]) || p.Rate > cols[x] {
			cols[x] = p.Rate
		}
	}
	prev := -1
	for x := range cols {
		if math.IsNaN(cols[x]) {
			continue
		}
		if prev >= 0 && x-prev > 1 {
			a, b := cols[prev], cols[x]
			for i := prev + 1; i < x; i++ {
				cols[i] = a + (b-a)*float64(i-prev)/float64(x-prev)
			}
		}
		prev = x
	}
	return cols
}

type cell struct {
	ch    rune
	color string
	bold  bool
}

// lineChart renders every series onto one grid with a labelled y axis and a
// relative time axis. Later series draw over earlier ones.
//
//	 40/s│        •
//	 30/s│     • • •
//	 20/s│ • •       • •
//	 10/s│•             •
//	  0/s│
//	     └───────────────
//	     -60s          now
func lineChart(all []series, width, height int, end time.Time, span time.Duration) string {
	if height < 3 {
		height = 3
	}
	peak := 0.0
	for _, s := range all {
		for _, p := range s.points {
			if p.Known && p.Rate > peak {
				peak = p.Rate
			}
		}
	}
	top, step := yScale(peak)

	labels := map[int]string{}
	axisW := 0
	for y := 0.0; y <= top+step*0.01; y += step {
		row := height - 1 - int(math.Round(y/top*float64(height-1)))
		labels[row] = formatRate(y)
		axisW = max(axisW, len(labels[row]))
	}
	plotW := width - axisW - 1
	if plotW < 10 {
		plotW = 10
	}

	grid := make([][]cell, height)
	for r := range grid {
		grid[r] = make([]cell, plotW)
	}
	for _, s := range all {
		for x, v := range columns(s.points, plotW, end, span) {
			if math.IsNaN(v) {
				continue
			}
			row := height - 1 - int(math.Round(math.Min(v, top)/top*float64(height-1)))
			grid[row][x] = cell{ch: '•', color: s.color, bold: s.bold}
		}
	}

	var sb strings.Builder
	for r, row := range grid {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%*s│", axisW, labels[r])))
		for _, c := range row {
			if c.ch == 0 {
				sb.WriteByte(' ')
				continue
			}
			st := lipgloss.NewStyle().Foreground(lipgloss.Color(c.color)).Bold(c.bold)
			sb.WriteString(st.Render(string(c.ch)))
		}
		sb.WriteByte('\n')
	}
	pad := strings.Repeat(" ", axisW)
	sb.WriteString(dimStyle.Render(pad + "└" + strings.Repeat("─", plotW)))
	sb.WriteByte('\n')

	left := fmt.Sprintf("-%.0fs", span.Seconds())
	mid := fmt.Sprintf("-%.0fs", span.Seconds()/2)
	right := "now"
	gap := plotW - len(left) - len(mid) - len(right)
	if gap < 2 {
		sb.WriteString(dimStyle.Render(pad + " " + left + strings.Repeat(" ", max(1, plotW-len(left)-len(right))) + right))
	} else {
		lg := gap / 2
		sb.WriteString(dimStyle.Render(pad + " " + left + strings.Repeat(" ", lg) + mid + strings.Repeat(" ", gap-lg) + right))
	}
	return sb.String()
}
