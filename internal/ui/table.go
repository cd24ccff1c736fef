package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interaction"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

const nameWidth = 36

// DisplayName is the label shown for a source: controllers by driver
// instance, devices indented under their controller with their class.
func DisplayName(s model.Source) string {
	if s.Kind == model.KindController {
		return s.Label
	}
	return "└─ " + s.Label
}

func perSecond(v float64) string { return fmt.Sprintf("%.1f/s", v) }

func rateCell(v float64, known bool) string {
	if !known {
		return "-"
	}
	return perSecond(v)
}

// renderTable lays out one row per source in snapshot order followed by the
// TOTAL row.
func renderTable(snap model.Snapshot, view interaction.View) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-*s %-12s %-8s %10s %10s %10s",
		nameWidth, "Source", "Type", "IRQ", "Rate", "Avg", "Max")))
	for i, src := range snap.Sources {
		b.WriteByte('\n')
		marker := " "
		if view.IsSelected(i) {
			marker = ">"
		}
		rate := rateCell(src.Rate, src.RateKnown)
		if src.Missing {
			rate = "missing"
		}
		line := fmt.Sprintf("%s %-*s %-12s %-8s %10s %10s %10s",
			marker, nameWidth, truncate(DisplayName(src.Source), nameWidth),
			truncate(src.TypeName(), 12), fmt.Sprintf("IRQ %d", src.IRQ),
			rate, perSecond(src.Avg), perSecond(src.Max))
		b.WriteString(rowStyle(src, view.IsHidden(src.ID), view.IsSelected(i)).Render(line))
	}
	b.WriteByte('\n')
	total := fmt.Sprintf("  %-*s %-12s %-8s %10s %10s %10s",
		nameWidth, "TOTAL", "", "", perSecond(snap.Total.Rate), perSecond(snap.Total.Avg), perSecond(snap.Total.Max))
	st := totalStyle
	if !view.TotalVisible {
		st = hiddenStyle.Bold(true)
	}
	b.WriteString(st.Render(total))
	return b.String()
}

func rowStyle(src model.SourceView, hidden, selected bool) lipgloss.Style {
	st := lipgloss.NewStyle().Foreground(lipgloss.Color(src.Color))
	if hidden {
		st = hiddenStyle
	} else if src.High {
		st = st.Background(lipgloss.Color(highBackground))
	}
	if selected {
		st = st.Reverse(true)
	}
	return st
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
