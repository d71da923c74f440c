package ui

import (
	"fmt"
	"strings"
)

// SwitchRow is one line of a switch table.
type SwitchRow struct {
	ID   int
	Name string
	On   bool
}

// RenderSwitchTable renders switches as an aligned table
func RenderSwitchTable(rows []SwitchRow) string {
	if len(rows) == 0 {
		return SwitchOffStyle.Render("  (no switches)")
	}

	nameWidth := len("NAME")
	for _, r := range rows {
		if len(r.Name) > nameWidth {
			nameWidth = len(r.Name)
		}
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("  %-4s %-*s  %s", "ID", nameWidth, "NAME", "STATE")))
	b.WriteString("\n")
	for _, r := range rows {
		state := SwitchOffStyle.Render("off")
		if r.On {
			state = SwitchOnStyle.Render("on")
		}
		fmt.Fprintf(&b, "  %-4d %-*s  %s\n", r.ID, nameWidth, r.Name, state)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
