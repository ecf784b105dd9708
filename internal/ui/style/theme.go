package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the palette and the styles built from it.
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Success lipgloss.Color

	BgDark   lipgloss.Color
	BgMedium lipgloss.Color
	BgLight  lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color

	HeaderStyle     lipgloss.Style
	PathStyle       lipgloss.Style
	TabActiveStyle  lipgloss.Style
	TabIdleStyle    lipgloss.Style
	StatusBarStyle  lipgloss.Style
	SelectedRow     lipgloss.Style
	MarkedIndicator lipgloss.Style
	CursorIndicator lipgloss.Style
	DirName         lipgloss.Style
	FileName        lipgloss.Style
	SizeText        lipgloss.Style
	ApproxText      lipgloss.Style
	PendingText     lipgloss.Style
	PercentText     lipgloss.Style
	ErrorText       lipgloss.Style
	HelpKey         lipgloss.Style
	HelpDesc        lipgloss.Style
	ModalStyle      lipgloss.Style
	ModalTitle      lipgloss.Style
}

// DefaultTheme returns the dark theme.
func DefaultTheme() Theme {
	t := Theme{
		Primary: lipgloss.Color("#7B2FBE"),
		Accent:  lipgloss.Color("#61AFEF"),
		Muted:   lipgloss.Color("#5C6370"),
		Error:   lipgloss.Color("#E06C75"),
		Warning: lipgloss.Color("#E5C07B"),
		Success: lipgloss.Color("#98C379"),

		BgDark:   lipgloss.Color("#1E1E2E"),
		BgMedium: lipgloss.Color("#282A36"),
		BgLight:  lipgloss.Color("#313244"),

		TextPrimary:   lipgloss.Color("#CDD6F4"),
		TextSecondary: lipgloss.Color("#BAC2DE"),
		TextMuted:     lipgloss.Color("#6C7086"),

		GradientStart: lipgloss.Color("#7B2FBE"),
		GradientEnd:   lipgloss.Color("#00D4AA"),
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	t.HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Background(t.BgMedium)
	t.PathStyle = fg(t.TextMuted)
	t.TabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Background(t.Primary).Padding(0, 1)
	t.TabIdleStyle = fg(t.TextMuted).Padding(0, 1)
	t.StatusBarStyle = fg(t.TextSecondary).Background(t.BgMedium)
	t.SelectedRow = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4A4A6A"))

	t.MarkedIndicator = fg(t.Error).Bold(true)
	t.CursorIndicator = fg(t.Primary).Bold(true)
	t.DirName = fg(t.Accent).Bold(true)
	t.FileName = fg(t.TextSecondary)

	t.SizeText = fg(t.TextSecondary).Align(lipgloss.Right)
	t.ApproxText = fg(t.Warning).Align(lipgloss.Right)
	t.PendingText = fg(t.TextMuted).Italic(true).Align(lipgloss.Right)
	t.PercentText = fg(t.TextMuted).Width(6).Align(lipgloss.Right)
	t.ErrorText = fg(t.Error)

	t.HelpKey = fg(t.Primary).Bold(true)
	t.HelpDesc = fg(t.TextMuted)
	t.ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Background(t.BgMedium)
	t.ModalTitle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Padding(0, 0, 1, 0)

	return t
}

// GradientColor interpolates between the gradient ends in Lab space.
func (t Theme) GradientColor(ratio float64) lipgloss.Color {
	switch {
	case ratio <= 0:
		return t.GradientStart
	case ratio >= 1:
		return t.GradientEnd
	}
	c1, _ := colorful.Hex(string(t.GradientStart))
	c2, _ := colorful.Hex(string(t.GradientEnd))
	return lipgloss.Color(c1.BlendLab(c2, ratio).Hex())
}

// BarGradient renders a share bar whose filled cells each take their own
// gradient color. A pending share renders as a dotted track.
func (t Theme) BarGradient(width int, ratio float64, pending bool) string {
	if width <= 0 {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(t.TextMuted)
	if pending {
		return dim.Render(strings.Repeat("·", width))
	}

	filled := int(ratio * float64(width))
	filled = min(max(filled, 0), width)

	var buf strings.Builder
	buf.Grow(width * 20)
	for i := 0; i < filled; i++ {
		c := t.GradientColor(float64(i) / float64(max(width-1, 1)))
		buf.WriteString(lipgloss.NewStyle().Foreground(c).Render("━"))
	}
	if filled < width {
		buf.WriteString(dim.Render(strings.Repeat("─", width-filled)))
	}
	return buf.String()
}
