package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/typerep/datatype"
	"github.com/wippyai/typerep/external"
	"github.com/wippyai/typerep/stream"
	"github.com/wippyai/typerep/typedef"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type viewMode int

const (
	viewTree viewMode = iota
	viewSegments
	viewPack
)

var viewNames = [...]string{
	viewTree:     "tree",
	viewSegments: "segments",
	viewPack:     "pack",
}

type interactiveModel struct {
	err      error
	cat      *typedef.Catalog
	names    []string
	count    textinput.Model
	opts     options
	selected int
	mode     viewMode
	editing  bool
}

func newInteractiveModel(cat *typedef.Catalog, o options) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "count: "
	ti.Placeholder = strconv.FormatInt(o.count, 10)
	ti.CharLimit = 12
	ti.Width = 12
	ti.SetValue(strconv.FormatInt(o.count, 10))

	return &interactiveModel{
		cat:   cat,
		names: cat.Names(),
		count: ti,
		opts:  o,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.editing {
		switch key.String() {
		case "enter", "esc":
			m.editing = false
			m.count.Blur()
			m.applyCount()
			return m, nil
		}
		var cmd tea.Cmd
		m.count, cmd = m.count.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.names)-1 {
			m.selected++
		}

	case "tab", "enter":
		m.mode = (m.mode + 1) % viewMode(len(viewNames))

	case "c":
		m.editing = true
		return m, m.count.Focus()
	}
	return m, nil
}

func (m *interactiveModel) applyCount() {
	v, err := strconv.ParseInt(strings.TrimSpace(m.count.Value()), 10, 64)
	if err != nil || v < 0 {
		m.err = fmt.Errorf("invalid count %q", m.count.Value())
		m.count.SetValue(strconv.FormatInt(m.opts.count, 10))
		return
	}
	m.err = nil
	m.opts.count = v
}

func (m *interactiveModel) View() string {
	if len(m.names) == 0 {
		return errorStyle.Render("Catalog defines no types.\n\nPress q to quit.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Type Explorer"))
	b.WriteString(" ")
	b.WriteString(m.opts.catalog)
	b.WriteString("\n\n")

	for i, name := range m.names {
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + name))
		} else {
			b.WriteString("  " + funcStyle.Render(name))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	name := m.names[m.selected]
	dt, err := m.cat.Lookup(name)
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
		return b.String()
	}

	b.WriteString(m.count.View())
	b.WriteString("  ")
	b.WriteString(typeStyle.Render(summary(dt, m.opts.count)))
	b.WriteString("\n\n")

	switch m.mode {
	case viewTree:
		b.WriteString(renderDump(dt, true))
	case viewSegments:
		b.WriteString(renderSegments(dt, m.opts))
	case viewPack:
		var out strings.Builder
		if err := packWalk(&out, dt, m.opts); err != nil {
			b.WriteString(errorStyle.Render(err.Error()))
		} else {
			b.WriteString(resultStyle.Render(out.String()))
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("↑/↓ select • tab view (%s) • c count • q quit", viewNames[m.mode])))
	return b.String()
}

func summary(dt *datatype.Type, count int64) string {
	ext := "n/a"
	if size, err := external.SizeExternal32(dt); err == nil {
		ext = strconv.FormatInt(count*size, 10)
	}
	return fmt.Sprintf("packed=%d external32=%s extent=%d", stream.PackedSize(count, dt), ext, dt.Extent())
}

func renderSegments(dt *datatype.Type, o options) string {
	var b strings.Builder
	segs := dt.Segments()
	shown := min(len(segs), o.maxIOV)
	for i, s := range segs[:shown] {
		fmt.Fprintf(&b, "  [%d] offset=%d length=%d\n", i, s.Offset, s.Length)
	}
	if shown < len(segs) {
		fmt.Fprintf(&b, "  ... %d more\n", len(segs)-shown)
	}
	return b.String()
}

// renderDump returns the type tree, with branch glyphs and node kinds
// styled when styled is set.
func renderDump(dt *datatype.Type, styled bool) string {
	var b strings.Builder
	_ = datatype.Dump(&b, dt)
	if !styled {
		return b.String()
	}

	var out strings.Builder
	for _, line := range strings.SplitAfter(b.String(), "\n") {
		if line == "" {
			continue
		}
		i := strings.IndexFunc(line, func(r rune) bool {
			return r == '[' || (r >= 'a' && r <= 'z')
		})
		if i < 0 {
			out.WriteString(line)
			continue
		}
		prefix, rest := line[:i], line[i:]
		label := ""
		if strings.HasPrefix(rest, "[") {
			if j := strings.Index(rest, ": "); j >= 0 {
				label, rest = rest[:j+2], rest[j+2:]
			}
		}
		kind, tail, _ := strings.Cut(rest, " ")
		out.WriteString(helpStyle.Render(prefix))
		out.WriteString(typeStyle.Render(label))
		out.WriteString(funcStyle.Render(kind))
		if tail != "" {
			out.WriteString(" " + tail)
		}
	}
	return out.String()
}

func runInteractive(cat *typedef.Catalog, o options) error {
	p := tea.NewProgram(newInteractiveModel(cat, o), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
