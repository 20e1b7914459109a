// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// TruncateRunes shortens s to at most maxRunes characters, replacing the
// tail with "..." when something was cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// PrefixRunes returns the first n runes of s without adding an ellipsis.
// Combining marks that belong to the last kept character are kept with
// it, so the result may run a few runes past n.
func PrefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	cut, count := len(s), 0
	for i := range s {
		if count == n {
			cut = i
			break
		}
		count++
	}
	if cut == len(s) {
		return s
	}
	rest := s[cut:]
	if b := norm.NFC.FirstBoundaryInString(rest); b > 0 {
		cut += b
	} else if b < 0 {
		cut = len(s)
	}
	return s[:cut]
}

// SingleLine collapses line breaks and tabs into single spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateWidth shortens s to fit maxWidth terminal columns. Wide (CJK)
// characters count as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadWidth right-pads s with spaces up to width columns.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(s, width)
}
