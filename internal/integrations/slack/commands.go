package slackbot

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
	"agentwatch/internal/report"
)

var errUsage = errors.New("usage")

// parseTargetAndMonth splits "<target> [YYYY-MM]". The target may contain
// spaces; a trailing month defaults to the month containing today.
func parseTargetAndMonth(text string, today domain.Date) (string, domain.YearMonth, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", domain.YearMonth{}, errUsage
	}

	month := today.YearMonth()
	last := fields[len(fields)-1]
	if looksLikeMonth(last) {
		parsed, err := domain.ParseYearMonth(last)
		if err != nil {
			return "", domain.YearMonth{}, err
		}
		month = parsed
		fields = fields[:len(fields)-1]
	}
	if len(fields) == 0 {
		return "", domain.YearMonth{}, errUsage
	}
	return strings.Join(fields, " "), month, nil
}

func looksLikeMonth(s string) bool {
	if len(s) < 6 || len(s) > 7 || s[4] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func renderPerformance(p domain.Panchayath, r performance.Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("*Agent performance: %s (%s)*", p.Name, r.Month.Label()))
	if r.WindowStart.IsZero() {
		lines = append(lines, "_No days of this month have elapsed yet._")
	} else {
		lines = append(lines, fmt.Sprintf("_Window: %s to %s_", r.WindowStart, r.WindowEnd))
	}
	lines = append(lines, fmt.Sprintf("Total agents: *%d* · Inactive: *%d* (%s%%)",
		r.Stats.TotalAgents, r.Stats.InactiveAgents, report.FormatPercent(r.Stats.InactivePercentage)))

	if len(r.Groups) == 0 {
		lines = append(lines, "", "No agents found for this panchayath.")
	}
	for _, g := range r.Groups {
		lines = append(lines, "", fmt.Sprintf("*%s* (%d inactive of %d)", g.DisplayName, g.InactiveCount, len(g.Agents)))
		for _, a := range g.Agents {
			lines = append(lines, slackAgentLine(a))
		}
	}

	if warnings := report.Warnings(r); len(warnings) > 0 {
		lines = append(lines, "", ":warning: *Warnings*")
		for _, w := range warnings {
			lines = append(lines, "• "+w)
		}
	}
	return strings.Join(lines, "\n")
}

// slackAgentLine converts the Markdown agent bullet to Slack mrkdwn.
func slackAgentLine(a domain.PerformanceResult) string {
	line := report.AgentLine(a)
	line = strings.Replace(line, "- ", "• ", 1)
	return strings.ReplaceAll(line, "**", "*")
}

var dayMarks = map[domain.DayStatus]string{
	domain.DayActive:     "A",
	domain.DayLeave:      "L",
	domain.DayNoActivity: "-",
	domain.DayNoData:     ".",
}

const calendarCell = 4

func renderCalendar(agent domain.Agent, cal domain.Calendar) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s) · %s\n", agent.Name, agent.Role.DisplayName(), cal.Month.Label())

	b.WriteString("```\n")
	for _, wd := range []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"} {
		b.WriteString(padRight(wd, calendarCell))
	}
	b.WriteString("\n")

	col := 0
	for ; col < cal.LeadingBlanks; col++ {
		b.WriteString(strings.Repeat(" ", calendarCell))
	}
	for _, d := range cal.Days {
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
		cell := fmt.Sprintf("%2d%s", d.Date.Day(), dayMarks[d.Status])
		if d.IsToday {
			cell += "*"
		}
		b.WriteString(padRight(cell, calendarCell))
		col++
	}
	b.WriteString("\n```\n")
	b.WriteString("A active · L leave · - no activity · . no data · * today")

	var previews []string
	for _, d := range cal.Days {
		if d.Preview != "" {
			previews = append(previews, fmt.Sprintf("• %s: %s", d.Date, d.Preview))
		}
	}
	if len(previews) > 0 {
		b.WriteString("\n\n*Activity*\n")
		b.WriteString(strings.Join(previews, "\n"))
	}
	return b.String()
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func renderPanchayaths(panchayaths []domain.Panchayath) string {
	if len(panchayaths) == 0 {
		return "No panchayaths found."
	}
	lines := []string{fmt.Sprintf("*Panchayaths* (%d)", len(panchayaths))}
	for _, p := range panchayaths {
		lines = append(lines, fmt.Sprintf("• %s `%s`", p.Name, p.ID))
	}
	return strings.Join(lines, "\n")
}

func helpText(isManager bool) string {
	lines := []string{
		"*Agent Performance Commands*",
		"",
		"`/performance <panchayath> [YYYY-MM]` — Performance of every agent in a panchayath.",
		">*Example:* `/performance Mavoor 2026-10`",
		"`/agent-calendar <contact number> [YYYY-MM]` — Daily note calendar of one agent.",
		"`/panchayaths` — List panchayaths.",
		"`/help` — Show this help.",
		"",
		fmt.Sprintf("An agent is inactive after %d consecutive days without activity.", performance.InactiveThreshold),
	}
	if isManager {
		lines = append(lines,
			"",
			"*Manager Commands*",
			"",
			"`/sweep` — Run the inactivity sweep across every panchayath now.",
		)
	}
	return strings.Join(lines, "\n")
}
