// Package config is the interactive editor of the configuration file.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/tui/theme"
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldToggle
	fieldSecret
)

// field is one editable value. apply writes the edited value into a config.
type field struct {
	label string
	kind  fieldKind
	input textinput.Model
	on    bool
	apply func(cfg *config.Config, value string, on bool) error
}

type section struct {
	title  string
	fields []*field
}

// Model edits a configuration and saves it on ctrl+s.
type Model struct {
	cfg      *config.Config
	path     string
	theme    theme.Theme
	sections []section
	active   int
	focus    int

	width, height int

	status string
	err    error
	saved  bool
}

// New returns an editor of cfg that saves to path.
func New(cfg *config.Config, path string, th theme.Theme) *Model {
	m := &Model{cfg: cfg, path: path, theme: th}
	m.sections = buildSections(cfg)
	m.applyFocus()
	return m
}

func textField(label, value string, apply func(*config.Config, string) error) *field {
	in := textinput.New()
	in.SetValue(value)
	in.Prompt = ""
	return &field{label: label, kind: fieldText, input: in, apply: func(c *config.Config, v string, _ bool) error { return apply(c, v) }}
}

func secretField(label, value string, apply func(*config.Config, string) error) *field {
	f := textField(label, value, apply)
	f.kind = fieldSecret
	f.input.EchoMode = textinput.EchoPassword
	return f
}

func toggleField(label string, on bool, apply func(*config.Config, bool)) *field {
	return &field{label: label, kind: fieldToggle, on: on, apply: func(c *config.Config, _ string, on bool) error {
		apply(c, on)
		return nil
	}}
}

func providerOf(c *config.Config, name string) *config.Provider {
	switch name {
	case media.ProviderTrakt:
		return &c.Providers.Trakt
	case media.ProviderTMDb:
		return &c.Providers.TMDb
	case media.ProviderTVDb:
		return &c.Providers.TVDb
	case media.ProviderIMDb:
		return &c.Providers.IMDb
	default:
		return &c.Providers.Fanart
	}
}

var providerLabels = []struct{ name, label string }{
	{media.ProviderTrakt, "Trakt"},
	{media.ProviderTMDb, "TMDb"},
	{media.ProviderTVDb, "TVDb"},
	{media.ProviderIMDb, "IMDb (OMDb key)"},
	{media.ProviderFanart, "Fanart"},
}

func buildSections(cfg *config.Config) []section {
	var providers []*field
	for _, p := range providerLabels {
		name := p.name
		current := providerOf(cfg, name)
		providers = append(providers,
			toggleField(p.label+" enabled", current.Enabled, func(c *config.Config, on bool) { providerOf(c, name).Enabled = on }),
			secretField(p.label+" API key", current.APIKey, func(c *config.Config, v string) error {
				providerOf(c, name).APIKey = strings.TrimSpace(v)
				return nil
			}),
		)
	}

	menu := []*field{
		textField("Page size", strconv.Itoa(cfg.Menu.PageSize), func(c *config.Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n <= 0 {
				return fmt.Errorf("page size must be a positive number")
			}
			c.Menu.PageSize = n
			return nil
		}),
		textField("Detail (minimal, standard, extended)", cfg.Menu.Detail, func(c *config.Config, v string) error {
			c.Menu.Detail = strings.ToLower(strings.TrimSpace(v))
			return nil
		}),
		textField("Language", cfg.Menu.Language, func(c *config.Config, v string) error {
			c.Menu.Language = strings.TrimSpace(v)
			return nil
		}),
		textField("Hidden niches (comma separated)", strings.Join(cfg.Menu.HideNiches, ", "), func(c *config.Config, v string) error {
			c.Menu.HideNiches = nil
			for _, niche := range strings.Split(v, ",") {
				if niche = strings.TrimSpace(niche); niche != "" {
					c.Menu.HideNiches = append(c.Menu.HideNiches, niche)
				}
			}
			return nil
		}),
	}

	shows := []*field{
		textField("Specials (off, on, reduce)", cfg.Show.Specials, func(c *config.Config, v string) error {
			c.Show.Specials = strings.ToLower(strings.TrimSpace(v))
			return nil
		}),
		toggleField("Interleave specials", cfg.Show.Interleave, func(c *config.Config, on bool) { c.Show.Interleave = on }),
		toggleField("Reduce extras", cfg.Show.ReduceExtras, func(c *config.Config, on bool) { c.Show.ReduceExtras = on }),
		toggleField("Reduce short specials", cfg.Show.ReduceShort, func(c *config.Config, on bool) { c.Show.ReduceShort = on }),
	}

	percent := func(label string, value float64, set func(*config.Config, float64)) *field {
		return textField(label, strconv.FormatFloat(100*value, 'f', -1, 64), func(c *config.Config, v string) error {
			n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
			if err != nil {
				return fmt.Errorf("%s must be a percentage", strings.ToLower(label))
			}
			set(c, n/100)
			return nil
		})
	}
	batch := []*field{
		percent("Resume below usage %", cfg.Batch.Start, func(c *config.Config, v float64) { c.Batch.Start = v }),
		percent("Pause above usage %", cfg.Batch.Stop, func(c *config.Config, v float64) { c.Batch.Stop = v }),
		textField("Check interval (seconds)", strconv.Itoa(cfg.Batch.IntervalSeconds), func(c *config.Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n <= 0 {
				return fmt.Errorf("check interval must be a positive number")
			}
			c.Batch.IntervalSeconds = n
			return nil
		}),
	}

	logging := []*field{
		textField("Level", cfg.Logging.Level, func(c *config.Config, v string) error {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
			return nil
		}),
		textField("Journal retention (days)", strconv.Itoa(cfg.Logging.RetentionDays), func(c *config.Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("retention must be a number of days")
			}
			c.Logging.RetentionDays = n
			return nil
		}),
	}

	return []section{
		{title: "Providers", fields: providers},
		{title: "Menus", fields: menu},
		{title: "Shows", fields: shows},
		{title: "Batch", fields: batch},
		{title: "Logging", fields: logging},
	}
}

func (m *Model) Init() tea.Cmd { return textinput.Blink }

func (m *Model) current() *field {
	fields := m.sections[m.active].fields
	if m.focus >= len(fields) {
		m.focus = len(fields) - 1
	}
	return fields[m.focus]
}

func (m *Model) applyFocus() tea.Cmd {
	for i, s := range m.sections {
		for j, f := range s.fields {
			if f.kind == fieldToggle {
				continue
			}
			if i == m.active && j == m.focus {
				f.input.Focus()
			} else {
				f.input.Blur()
			}
		}
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, s := range m.sections {
			for _, f := range s.fields {
				f.input.Width = max(msg.Width/2-4, 10)
			}
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	f := m.current()
	if f.kind == fieldToggle {
		return m, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+s":
		m.save()
		return m, nil
	case "alt+right", "ctrl+right":
		m.active = (m.active + 1) % len(m.sections)
		m.focus = 0
		return m, m.applyFocus()
	case "alt+left", "ctrl+left":
		m.active = (m.active + len(m.sections) - 1) % len(m.sections)
		m.focus = 0
		return m, m.applyFocus()
	case "down", "tab":
		m.focus = (m.focus + 1) % len(m.sections[m.active].fields)
		return m, m.applyFocus()
	case "up", "shift+tab":
		n := len(m.sections[m.active].fields)
		m.focus = (m.focus + n - 1) % n
		return m, m.applyFocus()
	}

	f := m.current()
	if f.kind == fieldToggle {
		if key.Type == tea.KeySpace || key.Type == tea.KeyEnter {
			f.on = !f.on
			m.status = ""
		}
		return m, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(key)
	m.status = ""
	return m, cmd
}

// save applies every field to a copy of the configuration, validates it and
// writes it. The loaded configuration only changes when the write succeeds.
func (m *Model) save() {
	next := *m.cfg
	for _, s := range m.sections {
		for _, f := range s.fields {
			if err := f.apply(&next, f.input.Value(), f.on); err != nil {
				m.err, m.status = err, ""
				return
			}
		}
	}
	if err := next.Validate(); err != nil {
		m.err, m.status = err, ""
		return
	}
	if err := next.Save(m.path); err != nil {
		m.err, m.status = err, ""
		return
	}
	*m.cfg = next
	m.err = nil
	m.saved = true
	m.status = "Saved to " + m.path
}

// Saved reports whether the configuration was written at least once.
func (m *Model) Saved() bool { return m.saved }

// Config returns the configuration as last saved.
func (m *Model) Config() *config.Config { return m.cfg }

func (m *Model) View() string {
	if m.width == 0 {
		m.width = 80
	}
	header := m.theme.HeaderStyle().Width(m.width).Render("metaweave configuration")

	active := lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(m.theme.Colors().Primary).Underline(true)
	inactive := lipgloss.NewStyle().Padding(0, 2).Foreground(m.theme.Colors().Muted)
	tabs := make([]string, len(m.sections))
	for i, s := range m.sections {
		if i == m.active {
			tabs[i] = active.Render(s.title)
		} else {
			tabs[i] = inactive.Render(s.title)
		}
	}

	labelWidth := m.width / 2
	focused := lipgloss.NewStyle().Foreground(m.theme.Colors().Accent).Bold(true)
	var rows []string
	for i, f := range m.sections[m.active].fields {
		label := f.label
		if i == m.focus {
			label = focused.Render("> " + label)
		} else {
			label = "  " + label
		}
		value := f.input.View()
		if f.kind == fieldToggle {
			value = "[ ]"
			if f.on {
				value = "[x]"
			}
		}
		rows = append(rows, lipgloss.NewStyle().Width(labelWidth).Render(label)+value)
	}
	body := m.theme.PanelStyle().Width(max(m.width-4, 20)).Render(strings.Join(rows, "\n"))

	status := "alt+←/→ section  ↑/↓ field  space toggle  ctrl+s save  esc quit"
	bar := m.theme.StatusBarStyle().Width(m.width)
	switch {
	case m.err != nil:
		status = "Error: " + m.err.Error()
		bar = bar.Background(m.theme.Colors().Error)
	case m.status != "":
		status = m.status
		bar = bar.Background(m.theme.Colors().Success)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, tabs...), body, bar.Render(status))
}
