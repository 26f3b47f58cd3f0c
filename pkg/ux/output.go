// Package ux provides terminal output styling for the Chia CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Chia color palette - Andean highland golds and páramo greens
var (
	// Primary palette (brightest to darkest)
	ColorGoldBright  = lipgloss.Color("#F2C14E") // Bright gold - highlights, success
	ColorGoldPrimary = lipgloss.Color("#E0A93E") // Primary gold - main brand color
	ColorGoldDeep    = lipgloss.Color("#B8862F") // Deep gold - borders, accents
	ColorGreenParamo = lipgloss.Color("#5E8C61") // Páramo green - secondary elements
	ColorGreenMoss   = lipgloss.Color("#3F6844") // Moss green - subtle accents

	// Dark palette (for backgrounds, muted elements)
	ColorEarth    = lipgloss.Color("#4A3B2A") // Earth brown - muted text, borders
	ColorMidnight = lipgloss.Color("#1E2328") // Midnight - deep backgrounds

	// Semantic colors (keeping standard conventions for clarity)
	ColorSuccess = lipgloss.Color("#5E8C61") // Green for success
	ColorWarning = lipgloss.Color("#F2C14E") // Gold for warnings
	ColorError   = lipgloss.Color("#D64545") // Red for errors
	ColorMuted   = lipgloss.Color("#7A7265") // Stone for muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorGoldBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorGoldPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorGoldBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGoldDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	if plain {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// plain disables styling for scripted use; see SetPlain.
var plain bool

// SetPlain toggles machine-friendly output: no colors, no boxes, stable
// one-line prefixes.
func SetPlain(v bool) { plain = v }

// Plain reports whether machine-friendly output is active.
func Plain() bool { return plain }

// Title prints a styled section title
func Title(text string) {
	if plain {
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	if plain {
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func Warning(text string) {
	if plain {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func Error(text string) {
	if plain {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func Info(text string) {
	if plain {
		fmt.Println(text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text
func Muted(text string) {
	if plain {
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if plain {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	if plain {
		fmt.Fprintf(os.Stderr, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(60)
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// StatusRow prints one container or check with its status icon and an
// optional detail, aligned for scanning.
func StatusRow(name string, status Icon, detail string) {
	if plain {
		fmt.Printf("%s\t%s\t%s\n", status, name, detail)
		return
	}
	if detail != "" {
		fmt.Printf("%s %-24s %s\n", status.Render(), name, Styles.Muted.Render(detail))
	} else {
		fmt.Printf("%s %s\n", status.Render(), name)
	}
}

// KeyValue prints an aligned "key: value" line.
func KeyValue(key, value string) {
	if plain {
		fmt.Printf("%s=%s\n", key, value)
		return
	}
	fmt.Printf("  %s %s\n", Styles.Muted.Render(fmt.Sprintf("%-14s", key+":")), value)
}

// Indent returns text with every line indented by n spaces.
func Indent(text string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}
