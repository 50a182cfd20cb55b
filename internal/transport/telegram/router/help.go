package router

import (
	"fmt"
	"strings"
)

// helpText renders plain-text help: the command list, or the details of
// one command when args names it.
func (m *CommandManager) helpText(args []string, owner bool) string {
	if len(args) > 0 {
		c, ok := m.lookup(strings.TrimPrefix(args[0], "/"))
		if !ok || (c.Access == AccessOwnerOnly && !owner) {
			return fmt.Sprintf("Unknown command %q. Try /help", args[0])
		}
		return commandHelp(c)
	}

	lines := []string{"Commands:"}
	for _, c := range m.registered() {
		if c.Access == AccessOwnerOnly && !owner {
			continue
		}
		line := "/" + c.Name
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " - " + d
		}
		if c.Access == AccessOwnerOnly {
			line += " (owner)"
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "Type /help <cmd> for details.")
	return strings.Join(lines, "\n")
}

func commandHelp(c *Command) string {
	lines := []string{"/" + c.Name}
	if d := strings.TrimSpace(c.Description); d != "" {
		lines = append(lines, d)
	}
	if u := strings.TrimSpace(c.Usage); u != "" {
		lines = append(lines, "", "Usage:", u)
	}
	if len(c.Aliases) > 0 {
		lines = append(lines, "", "Aliases: /"+strings.Join(c.Aliases, ", /"))
	}
	return strings.Join(lines, "\n")
}
