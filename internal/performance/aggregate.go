package performance

import (
	"math"

	"agentwatch/internal/domain"
)

type RoleGroup struct {
	Role          domain.Role                `json:"role"`
	DisplayName   string                     `json:"display_name"`
	Agents        []domain.PerformanceResult `json:"agents"`
	InactiveCount int                        `json:"inactive_count"`
}

func Aggregate(results []domain.PerformanceResult) domain.PerformanceStats {
	stats := domain.PerformanceStats{TotalAgents: len(results)}
	for _, r := range results {
		if r.IsInactive {
			stats.InactiveAgents++
		}
	}
	if stats.TotalAgents > 0 {
		pct := float64(stats.InactiveAgents) / float64(stats.TotalAgents) * 100
		stats.InactivePercentage = math.Round(pct*100) / 100
	}
	return stats
}

// GroupByRole splits results by role in domain.Roles order. Roles without
// agents are left out.
func GroupByRole(results []domain.PerformanceResult) []RoleGroup {
	var groups []RoleGroup
	for _, role := range domain.Roles {
		group := RoleGroup{Role: role, DisplayName: role.PluralName()}
		for _, r := range results {
			if r.AgentType != role {
				continue
			}
			group.Agents = append(group.Agents, r)
			if r.IsInactive {
				group.InactiveCount++
			}
		}
		if len(group.Agents) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}
