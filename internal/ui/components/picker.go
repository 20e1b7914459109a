// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ui/styles"
	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// MODEL PICKER
// =============================================================================

// PickModelMsg is sent when the user chooses a model.
type PickModelMsg struct {
	Name string
}

// ClosePickerMsg is sent when the picker is dismissed without a choice.
type ClosePickerMsg struct{}

// maxPickerRows bounds how many models are visible at once.
const maxPickerRows = 10

// ModelPicker is the overlay listing available models.
type ModelPicker struct {
	models   []model.ModelInfo
	selected string
	cursor   int
	offset   int
	visible  bool

	width  int
	height int

	theme *styles.Theme

	up, down, choose, cancel key.Binding
}

// NewModelPicker creates a hidden picker.
func NewModelPicker(theme *styles.Theme) *ModelPicker {
	return &ModelPicker{
		theme:  theme,
		up:     key.NewBinding(key.WithKeys("up", "ctrl+p", "shift+tab")),
		down:   key.NewBinding(key.WithKeys("down", "ctrl+n", "tab")),
		choose: key.NewBinding(key.WithKeys("enter")),
		cancel: key.NewBinding(key.WithKeys("esc", "ctrl+o")),
	}
}

// Show opens the picker over models with the cursor on selected.
func (p *ModelPicker) Show(models []model.ModelInfo, selected string) {
	p.models = models
	p.selected = selected
	p.cursor = 0
	p.offset = 0
	for i, m := range models {
		if m.Name == selected {
			p.cursor = i
			break
		}
	}
	p.scrollToCursor()
	p.visible = true
}

// Hide closes the picker.
func (p *ModelPicker) Hide() {
	p.visible = false
}

// IsVisible reports whether the picker is open.
func (p *ModelPicker) IsVisible() bool {
	return p.visible
}

// Cursor is the highlighted row.
func (p *ModelPicker) Cursor() int {
	return p.cursor
}

// SetSize updates the dimensions.
func (p *ModelPicker) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Update handles navigation keys while the picker is open.
func (p *ModelPicker) Update(msg tea.Msg) (*ModelPicker, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.visible {
		return p, nil
	}

	switch {
	case key.Matches(keyMsg, p.cancel):
		p.Hide()
		return p, func() tea.Msg { return ClosePickerMsg{} }
	case key.Matches(keyMsg, p.choose):
		if len(p.models) == 0 {
			return p, nil
		}
		name := p.models[p.cursor].Name
		p.Hide()
		return p, func() tea.Msg { return PickModelMsg{Name: name} }
	case key.Matches(keyMsg, p.up):
		if p.cursor > 0 {
			p.cursor--
		} else if len(p.models) > 0 {
			p.cursor = len(p.models) - 1
		}
	case key.Matches(keyMsg, p.down):
		if p.cursor < len(p.models)-1 {
			p.cursor++
		} else {
			p.cursor = 0
		}
	}
	p.scrollToCursor()
	return p, nil
}

func (p *ModelPicker) scrollToCursor() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+maxPickerRows {
		p.offset = p.cursor - maxPickerRows + 1
	}
}

// View renders the picker box centered in the available space.
func (p *ModelPicker) View() string {
	if !p.visible {
		return ""
	}

	boxWidth := 50
	if p.width > 0 && boxWidth > p.width-4 {
		boxWidth = p.width - 4
	}
	if boxWidth < 24 {
		boxWidth = 24
	}
	inner := boxWidth - 6

	var b strings.Builder
	b.WriteString(p.theme.PickerTitle.Render("Select a model"))
	b.WriteString("\n")

	if len(p.models) == 0 {
		b.WriteString(p.theme.PickerMeta.Render("No models available"))
	}

	end := p.offset + maxPickerRows
	if end > len(p.models) {
		end = len(p.models)
	}
	for i := p.offset; i < end; i++ {
		b.WriteString(p.renderItem(p.models[i], i == p.cursor, inner))
		b.WriteString("\n")
	}
	if len(p.models) > maxPickerRows {
		b.WriteString(p.theme.PickerMeta.Render(fmt.Sprintf("%d of %d", p.cursor+1, len(p.models))))
		b.WriteString("\n")
	}
	b.WriteString(p.theme.PickerMeta.Render("enter select  esc close"))

	box := p.theme.PickerBox.Width(boxWidth).Render(b.String())
	if p.width == 0 || p.height == 0 {
		return box
	}
	return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
}

func (p *ModelPicker) renderItem(m model.ModelInfo, highlighted bool, width int) string {
	marker := "  "
	if m.Name == p.selected {
		marker = "* "
	}
	size := m.FormatSize()
	nameWidth := width - len(marker) - len(size) - 3
	if nameWidth < 4 {
		nameWidth = 4
	}
	line := marker + util.PadWidth(util.TruncateWidth(m.Name, nameWidth), nameWidth) + " " + size
	if highlighted {
		return p.theme.PickerItemSelected.Render(line)
	}
	return p.theme.PickerItem.Render(line)
}
