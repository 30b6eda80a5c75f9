// Package theme holds the palette, styles and icons shared by the terminal
// views.
package theme

import (
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// IconSet maps icon names to glyphs.
type IconSet map[string]string

func (s IconSet) clone() IconSet {
	if s == nil {
		return nil
	}
	out := make(IconSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Colors is the palette.
type Colors struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// Spacing holds the padding values of panels and bars.
type Spacing struct {
	PanelPadding   int
	StatusHPadding int
}

// BadgeKind selects a badge variant.
type BadgeKind int

const (
	BadgeInfo BadgeKind = iota
	BadgeSuccess
	BadgeWarning
	BadgeError
	BadgeMuted
)

// Theme bundles palette, panel border, spacing and icons.
type Theme struct {
	colors   Colors
	border   lipgloss.Border
	spacing  Spacing
	icons    IconSet
	fallback IconSet
}

// Option configures a Theme.
type Option func(*Theme)

// WithIconSet overrides the icons.
func WithIconSet(set IconSet) Option {
	return func(t *Theme) { t.icons = set.clone() }
}

// WithColors overrides the palette.
func WithColors(colors Colors) Option {
	return func(t *Theme) { t.colors = colors }
}

// WithSpacing overrides the spacing.
func WithSpacing(spacing Spacing) Option {
	return func(t *Theme) { t.spacing = spacing }
}

// WithBorder overrides the panel border.
func WithBorder(border lipgloss.Border) Option {
	return func(t *Theme) { t.border = border }
}

// New returns the default theme with opts applied.
func New(opts ...Option) Theme {
	t := Theme{
		colors: Colors{
			Primary:    lipgloss.Color("#2f4f6f"),
			Secondary:  lipgloss.Color("#4f7399"),
			Accent:     lipgloss.Color("#7fb2e5"),
			Background: lipgloss.Color("#f8f8f8"),
			Muted:      lipgloss.Color("#9ba8c0"),
			Success:    lipgloss.Color("#5dc796"),
			Warning:    lipgloss.Color("#e5b04f"),
			Error:      lipgloss.Color("#f04c56"),
		},
		border:   lipgloss.RoundedBorder(),
		spacing:  Spacing{PanelPadding: 1, StatusHPadding: 1},
		icons:    defaultIconSet(),
		fallback: asciiIcons.clone(),
	}
	for _, opt := range opts {
		opt(&t)
	}
	if t.icons == nil {
		t.icons = defaultIconSet()
	}
	return t
}

// Default returns New().
func Default() Theme { return New() }

func (t Theme) Colors() Colors   { return t.colors }
func (t Theme) Spacing() Spacing { return t.spacing }

// Icon returns the named icon, the ASCII fallback, or "".
func (t Theme) Icon(name string) string {
	if icon, ok := t.icons[name]; ok {
		return icon
	}
	return t.fallback[name]
}

// KindIcon returns the icon of an entity kind.
func (t Theme) KindIcon(kind media.Kind) string {
	if icon := t.Icon(string(kind)); icon != "" {
		return icon
	}
	return t.Icon("unknown")
}

func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(t.colors.Primary).
		Foreground(t.colors.Background).
		Align(lipgloss.Center)
}

func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.colors.Secondary).
		Foreground(t.colors.Background).
		Padding(0, t.spacing.StatusHPadding)
}

func (t Theme) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(t.colors.Accent).
		Padding(0, t.spacing.PanelPadding)
}

// BadgeStyle returns the style of a short status label.
func (t Theme) BadgeStyle(kind BadgeKind) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(t.colors.Background)
	switch kind {
	case BadgeSuccess:
		return base.Background(t.colors.Success)
	case BadgeWarning:
		return base.Background(t.colors.Warning)
	case BadgeError:
		return base.Background(t.colors.Error)
	case BadgeMuted:
		return base.Background(t.colors.Muted)
	default:
		return base.Background(t.colors.Accent)
	}
}

// ProgressGradient returns the two colors of the progress bar gradient.
func (t Theme) ProgressGradient() []string {
	return []string{string(t.colors.Primary), string(t.colors.Accent)}
}

func defaultIconSet() IconSet {
	if limitedTerminal() {
		return asciiIcons.clone()
	}
	return emojiIcons.clone()
}

// limitedTerminal reports terminals where emoji render poorly: remote
// sessions, Windows consoles and non-terminal output.
func limitedTerminal() bool {
	if os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_TTY") != "" || os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	if runtime.GOOS == "windows" {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

var emojiIcons = IconSet{
	string(media.KindMovie):   "🎬",
	string(media.KindSet):     "🗂",
	string(media.KindShow):    "📺",
	string(media.KindSeason):  "📁",
	string(media.KindEpisode): "🎞",
	string(media.KindPack):    "📦",
	"success":                 "✅",
	"error":                   "❌",
	"cooling":                 "⏸",
	"running":                 "▶",
	"stats":                   "📊",
	"unknown":                 "❓",
}

var asciiIcons = IconSet{
	string(media.KindMovie):   "[M]",
	string(media.KindSet):     "[C]",
	string(media.KindShow):    "[TV]",
	string(media.KindSeason):  "[S]",
	string(media.KindEpisode): "[E]",
	string(media.KindPack):    "[P]",
	"success":                 "[v]",
	"error":                   "[!]",
	"cooling":                 "[=]",
	"running":                 "[>]",
	"stats":                   "[#]",
	"unknown":                 "[?]",
}
