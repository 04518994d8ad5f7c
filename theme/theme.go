package theme

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Key help
	Solid rune // ■ bound
	Empty rune // □ unbound

	// Pattern grid
	Rest   rune // · nothing expected
	Note   rune // ● expected hit
	Accent rune // ▲ accented hit
	Played rune // ◉ expected and played on the last pass
	Missed rune // ✕ expected and missed on the last pass
	Cursor rune // ▼ slot the recorder is waiting on
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			Rest:   '·',
			Note:   '●',
			Accent: '▲',
			Played: '◉',
			Missed: '✕',
			Cursor: '▼',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleMiss    = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleHit     = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Miss() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMiss))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Hit() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleHit))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// RGB returns raw RGB for any normalized value
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// TimingNorm places a timing error on the palette: dead on is RoleHit,
// tolerance or worse is RoleMiss.
func TimingNorm(diffMsec, toleranceMsec float64) float64 {
	if toleranceMsec <= 0 {
		return RoleHit
	}
	ratio := math.Abs(diffMsec) / toleranceMsec
	if ratio >= 1 {
		return RoleMiss
	}
	return RoleHit - ratio*(RoleHit-RoleMiss)
}

// Timing colors a timing error
func (t *Theme) Timing(diffMsec, toleranceMsec float64) lipgloss.Color {
	return t.Color(TimingNorm(diffMsec, toleranceMsec))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
