// Package performance computes agent inactivity from daily notes: the
// consecutive-leave streak per agent, panchayath-wide statistics and the
// per-day calendar of a single agent.
package performance

import (
	"context"
	"errors"

	"agentwatch/internal/domain"
)

// InactiveThreshold is the streak length at which an agent counts as inactive.
const InactiveThreshold = 3

var (
	// ErrNoSelection means no panchayath or no valid month was chosen; callers
	// treat it as "nothing to compute" rather than a failure.
	ErrNoSelection = errors.New("no panchayath or month selected")
	// ErrRosterUnavailable is returned when no role roster could be loaded.
	ErrRosterUnavailable = errors.New("failed to fetch performance data")
)

type RosterSource interface {
	ListAgents(ctx context.Context, panchayathID string, role domain.Role) ([]domain.Agent, error)
}

// NoteSource returns the notes of one subject with from <= date <= to, in any order.
type NoteSource interface {
	NotesForSubject(ctx context.Context, subject domain.SubjectID, from, to domain.Date) ([]domain.DailyNote, error)
}
