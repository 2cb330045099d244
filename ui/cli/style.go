// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders for one writer; colour is dropped automatically when the
// writer is not a terminal.
type styles struct {
	label lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		label: r.NewStyle().Bold(true).Width(18),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:   r.NewStyle().Faint(true),
	}
}

// field prints one "label value" row.
func (s styles) field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", s.label.Render(label+":"), value)
}
