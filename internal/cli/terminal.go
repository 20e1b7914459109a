// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// canRunTUI reports whether both ends of the command are a terminal.
func canRunTUI(in io.Reader, out io.Writer) bool {
	return isTerminal(in) && isTerminal(out)
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// colorsEnabled reports whether out should get colored output. NO_COLOR
// disables colors, FORCE_COLOR forces them, otherwise out must be a TTY.
// See https://no-color.org/.
func colorsEnabled(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return isTerminal(out)
}

// colorProfile returns the termenv profile to render with for out.
func colorProfile(out io.Writer) termenv.Profile {
	if !colorsEnabled(out) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}
