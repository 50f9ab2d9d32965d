package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"
)

const ruleWidth = 60

// Banner writes operator-facing section headers and error notices.
//
// Banners are separate from the structured logger: they always go to the
// operator's console and mark the phase the run is in. Styling is only
// applied when the writer is a terminal.
//
// Create instances with [NewBanner].
type Banner struct {
	w          io.Writer
	errorLabel lipgloss.Style
	title      lipgloss.Style
	styled     bool
}

// NewBanner creates a [Banner] writing to w.
func NewBanner(w io.Writer) *Banner {
	return &Banner{
		w:          w,
		styled:     isTerminal(w),
		errorLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		title:      lipgloss.NewStyle().Bold(true),
	}
}

// Section prints msg between two horizontal rules.
func (b *Banner) Section(msg string) {
	rule := strings.Repeat("-", ruleWidth)

	fmt.Fprintf(b.w, "\n%s\n%s\n%s\n", rule, b.render(b.title, msg), rule)
}

// Error prints msg between two horizontal rules with a highlighted ERROR
// label, followed by an empty line.
func (b *Banner) Error(msg string) {
	rule := strings.Repeat("-", ruleWidth)

	fmt.Fprintf(b.w, "\n%s\n%s %s\n%s\n\n", rule, b.render(b.errorLabel, "ERROR:"), msg, rule)
}

func (b *Banner) render(style lipgloss.Style, s string) string {
	if !b.styled {
		return s
	}

	return style.Render(s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
