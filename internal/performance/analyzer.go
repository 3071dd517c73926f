package performance

import (
	"sort"

	"agentwatch/internal/domain"
)

// Streak is the outcome of walking one agent's notes over a window.
type Streak struct {
	ConsecutiveLeaveDays int
	LastActivityDate     *domain.Date
	TotalNotes           int
}

func (s Streak) IsInactive() bool {
	return s.ConsecutiveLeaveDays >= InactiveThreshold
}

// AnalyzeNotes walks window from the most recent date backwards. A date with
// no note, a leave note or a note with blank activity extends the streak; the
// first active date ends it and becomes the last activity date. When the walk
// finds no active date, the whole window is scanned again for the most recent
// active note.
func AnalyzeNotes(window []domain.Date, notes []domain.DailyNote) Streak {
	byDate := indexNotes(notes)

	desc := make([]domain.Date, len(window))
	copy(desc, window)
	sort.Slice(desc, func(i, j int) bool { return desc[j].Before(desc[i]) })

	streak := Streak{TotalNotes: len(notes)}
	for _, d := range desc {
		note, ok := byDate[d]
		if !ok || !note.IsActive() {
			streak.ConsecutiveLeaveDays++
			continue
		}
		if streak.LastActivityDate == nil {
			last := d
			streak.LastActivityDate = &last
		}
		break
	}

	if streak.LastActivityDate == nil {
		streak.LastActivityDate = mostRecentActive(window, byDate)
	}
	return streak
}

func mostRecentActive(dates []domain.Date, byDate map[domain.Date]domain.DailyNote) *domain.Date {
	var found *domain.Date
	for _, d := range dates {
		note, ok := byDate[d]
		if !ok || !note.IsActive() {
			continue
		}
		if found == nil || d.After(*found) {
			last := d
			found = &last
		}
	}
	return found
}

// indexNotes keys notes by date. Two notes on one date should not happen;
// when they do, an active note wins so the result does not depend on the
// order the store returned them in.
func indexNotes(notes []domain.DailyNote) map[domain.Date]domain.DailyNote {
	byDate := make(map[domain.Date]domain.DailyNote, len(notes))
	for _, n := range notes {
		if prev, ok := byDate[n.Date]; ok && prev.IsActive() {
			continue
		}
		byDate[n.Date] = n
	}
	return byDate
}

func resultFor(agent domain.Agent) domain.PerformanceResult {
	return domain.PerformanceResult{
		AgentID:      agent.ID,
		AgentName:    agent.Name,
		AgentType:    agent.Role,
		MobileNumber: agent.MobileNumber,
	}
}

func applyStreak(result domain.PerformanceResult, streak Streak) domain.PerformanceResult {
	result.ConsecutiveLeaveDays = streak.ConsecutiveLeaveDays
	result.IsInactive = streak.IsInactive()
	result.LastActivityDate = streak.LastActivityDate
	result.TotalNotes = streak.TotalNotes
	return result
}
