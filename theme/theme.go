// Package theme derives the monitor's lipgloss styles from a color palette.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 2.0 / 7
	RoleFG      = 3.0 / 7
	RoleAccent  = 4.0 / 7
	RoleInfo    = 5.0 / 7
	RoleWarning = 6.0 / 7
	RoleBank    = 1.0
)

type Theme struct {
	Palette *Palette

	Header lipgloss.Style
	Bank   lipgloss.Style
	Line   lipgloss.Style
	Dim    lipgloss.Style
	Status lipgloss.Style
	Warn   lipgloss.Style
}

// New builds the styles; a nil palette selects the built-in one
func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = DefaultPalette()
	}
	t := &Theme{Palette: palette}
	t.Header = lipgloss.NewStyle().Bold(true).Foreground(t.Color(RoleAccent))
	t.Bank = lipgloss.NewStyle().Foreground(t.Color(RoleBank))
	t.Line = lipgloss.NewStyle().Foreground(t.Color(RoleFG))
	t.Dim = lipgloss.NewStyle().Foreground(t.Color(RoleMuted))
	t.Status = lipgloss.NewStyle().Foreground(t.Color(RoleInfo))
	t.Warn = lipgloss.NewStyle().Foreground(t.Color(RoleWarning))
	return t
}

// Load builds a theme from a GPL file, or the built-in palette when path is empty
func Load(path string) (*Theme, error) {
	if path == "" {
		return New(nil), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Color returns the lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}
