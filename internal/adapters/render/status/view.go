package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kgrahame/ovoau/internal/sensors"
)

type RenderOptions struct {
	Now         time.Time
	LastSuccess time.Time
	Stale       bool
}

// section groups readings for display by key prefix. Order matters.
var sections = []struct {
	title  string
	prefix string
}{
	{"Solar", "solar_"},
	{"Grid", "grid_"},
	{"Export", "export_"},
	{"Savings", "savings_"},
}

func renderView(readings []sensors.Reading, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("OVO Energy Usage"),
		s.header.Render(headerLine(len(readings), opts, s)),
	}

	if len(readings) == 0 {
		lines = append(lines, s.empty.Render("No sensor readings available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	remaining := readings
	for _, sec := range sections {
		var matched, rest []sensors.Reading
		for _, r := range remaining {
			if strings.HasPrefix(r.Key, sec.prefix) {
				matched = append(matched, r)
			} else {
				rest = append(rest, r)
			}
		}
		remaining = rest
		if len(matched) == 0 {
			continue
		}
		lines = append(lines, s.section.Render(sec.title))
		for _, r := range matched {
			lines = append(lines, sensorLine(r, s))
		}
	}

	if len(remaining) > 0 {
		lines = append(lines, s.section.Render("Insights"))
		for _, r := range remaining {
			lines = append(lines, sensorLine(r, s))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(count int, opts RenderOptions, s styles) string {
	header := fmt.Sprintf("sensors: %d", count)
	if !opts.LastSuccess.IsZero() {
		header += fmt.Sprintf("  updated %s", formatUpdated(opts.LastSuccess, opts.Now))
	}
	if opts.Stale {
		header += "  " + s.warning.Render("[stale]")
	}
	return header
}

func sensorLine(r sensors.Reading, s styles) string {
	name := s.sensorName.Render(fmt.Sprintf("  %-38s", r.Name))
	if !r.Defined {
		return lipgloss.JoinHorizontal(lipgloss.Top, name, " ", s.noData.Render("no data"))
	}

	value := s.value.Render(formatValue(r.Value, r.Unit))
	line := lipgloss.JoinHorizontal(lipgloss.Top, name, " ", value, " ", s.unit.Render(r.Unit))

	if r.Unit == sensors.UnitPercent {
		line = lipgloss.JoinHorizontal(lipgloss.Top, line, " ", renderBar(r.Value, 20, s))
	}
	return line
}

func formatValue(v float64, unit string) string {
	switch unit {
	case sensors.UnitAUD, sensors.UnitAUDPerKWh:
		return fmt.Sprintf("%8.2f", v)
	case sensors.UnitPercent:
		return fmt.Sprintf("%8.1f", v)
	default:
		return fmt.Sprintf("%8.3f", v)
	}
}

// renderBar draws a percentage as a fixed-width gauge.
func renderBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	clamped := percent
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 100 {
		clamped = 100
	}

	filled := int(math.Round(float64(width) * clamped / 100))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatUpdated(last, now time.Time) string {
	if now.IsZero() {
		return last.Format("15:04")
	}

	elapsed := now.Sub(last)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		minutes := int(elapsed.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	default:
		return last.Format("15:04 on 02 Jan")
	}
}
