// Package report renders panchayath performance reports as Markdown and
// writes them, with an email draft, to the report directory.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
)

func RenderMarkdown(p domain.Panchayath, r performance.Report, summary string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### Agent performance: %s (%s)\n", panchayathLabel(p, r), r.Month.Label())
	if r.WindowStart.IsZero() {
		b.WriteString("No days of this month have elapsed yet.\n")
	} else {
		fmt.Fprintf(&b, "Window: %s to %s\n", r.WindowStart, r.WindowEnd)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "- **Total agents:** %d\n", r.Stats.TotalAgents)
	fmt.Fprintf(&b, "- **Inactive agents:** %d (%s%%)\n", r.Stats.InactiveAgents, FormatPercent(r.Stats.InactivePercentage))
	fmt.Fprintf(&b, "- **Inactive threshold:** %d consecutive days without activity\n", performance.InactiveThreshold)

	if summary = strings.TrimSpace(summary); summary != "" {
		b.WriteString("\n### Summary\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	for _, g := range r.Groups {
		fmt.Fprintf(&b, "\n### %s (%d inactive of %d)\n", g.DisplayName, g.InactiveCount, len(g.Agents))
		for _, a := range g.Agents {
			b.WriteString(AgentLine(a))
			b.WriteString("\n")
		}
	}

	if warnings := Warnings(r); len(warnings) > 0 {
		b.WriteString("\n### Warnings\n")
		for _, w := range warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

// AgentLine is one bullet; inactive agents are bold.
func AgentLine(a domain.PerformanceResult) string {
	name := a.AgentName
	status := "active"
	if a.IsInactive {
		name = "**" + name + "**"
		status = "inactive"
	}
	last := "none"
	if a.LastActivityDate != nil {
		last = a.LastActivityDate.String()
	}
	line := fmt.Sprintf("- %s (%s): %s, %d consecutive leave days, last activity %s, %d notes",
		name, contact(a.MobileNumber), status, a.ConsecutiveLeaveDays, last, a.TotalNotes)
	if a.Degraded {
		line += " (notes unavailable)"
	}
	if a.SharedSubject {
		line += " (contact number shared with another role)"
	}
	return line
}

// Warnings lists what made the report incomplete.
func Warnings(r performance.Report) []string {
	var out []string
	for _, re := range r.RosterErrors {
		out = append(out, fmt.Sprintf("%s roster could not be loaded: %s", re.Role.PluralName(), re.Message))
	}
	if n := r.Degraded(); n > 0 {
		out = append(out, fmt.Sprintf("%d agent(s) reported with zero values because their notes could not be read", n))
	}
	for _, s := range r.SharedSubjects {
		out = append(out, fmt.Sprintf("contact number %s is used by agents of more than one role; their notes are combined", s))
	}
	return out
}

// FormatPercent prints at most two decimals without trailing zeros.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func panchayathLabel(p domain.Panchayath, r performance.Report) string {
	if p.Name != "" {
		return p.Name
	}
	if p.ID != "" {
		return p.ID
	}
	return r.PanchayathID
}

func contact(mobile string) string {
	if strings.TrimSpace(mobile) == "" {
		return "no contact"
	}
	return strings.TrimSpace(mobile)
}
