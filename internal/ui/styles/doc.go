// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the localchat TUI.

# Color System (colors.go)

Every color is a Lip Gloss AdaptiveColor, so the palette follows the
terminal background unless a theme preference pins it:

	Purple, Cyan   - accents: selection, brand, assistant and user highlights
	Emerald        - success and "server reachable"
	Amber, Rose    - warnings and errors

Message bubbles use semantic tokens (UserBubbleBg, AssistantBubbleFg, ...)
and surfaces layer as Surface, SurfaceDim and Overlay.

# Theme System (theme.go)

	theme := styles.NewTheme(model.ThemeDark)
	sidebar := theme.SidebarItemSelected.Render(title)

NewTheme applies the user's theme preference: light and dark force the
background detection, auto asks the terminal.
*/
package styles
