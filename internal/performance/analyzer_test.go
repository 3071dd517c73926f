package performance

import (
	"testing"
	"time"

	"agentwatch/internal/domain"
)

func octWindow(days int) []domain.Date {
	var out []domain.Date
	for d := 1; d <= days; d++ {
		out = append(out, domain.NewDate(2026, time.October, d))
	}
	return out
}

func activeNote(day int, activity string) domain.DailyNote {
	return domain.DailyNote{Subject: "9000000001", Date: domain.NewDate(2026, time.October, day), Activity: activity}
}

func leaveNote(day int) domain.DailyNote {
	return domain.DailyNote{Subject: "9000000001", Date: domain.NewDate(2026, time.October, day), IsLeave: true}
}

func TestAnalyzeNotesTrailingGap(t *testing.T) {
	streak := AnalyzeNotes(octWindow(5), []domain.DailyNote{
		activeNote(1, "ward visit"),
		activeNote(2, "survey"),
	})
	if streak.ConsecutiveLeaveDays != 3 {
		t.Fatalf("streak got %d want 3", streak.ConsecutiveLeaveDays)
	}
	if !streak.IsInactive() {
		t.Fatalf("expected inactive")
	}
	if streak.LastActivityDate == nil || *streak.LastActivityDate != domain.NewDate(2026, time.October, 2) {
		t.Fatalf("last activity got %v want 2026-10-02", streak.LastActivityDate)
	}
	if streak.TotalNotes != 2 {
		t.Fatalf("total notes got %d want 2", streak.TotalNotes)
	}
}

func TestAnalyzeNotesBlankActivityCountsAsLeave(t *testing.T) {
	streak := AnalyzeNotes(octWindow(5), []domain.DailyNote{
		activeNote(4, "meeting"),
		activeNote(5, "   "),
	})
	if streak.ConsecutiveLeaveDays != 1 {
		t.Fatalf("streak got %d want 1", streak.ConsecutiveLeaveDays)
	}
	if *streak.LastActivityDate != domain.NewDate(2026, time.October, 4) {
		t.Fatalf("last activity got %s want 2026-10-04", streak.LastActivityDate)
	}
}

func TestAnalyzeNotesLeaveFlagOverridesActivity(t *testing.T) {
	note := activeNote(5, "was on leave but wrote something")
	note.IsLeave = true
	streak := AnalyzeNotes(octWindow(5), []domain.DailyNote{activeNote(3, "work"), note})
	if streak.ConsecutiveLeaveDays != 2 {
		t.Fatalf("streak got %d want 2", streak.ConsecutiveLeaveDays)
	}
}

func TestAnalyzeNotesMostRecentDayActiveIgnoresEarlierGaps(t *testing.T) {
	streak := AnalyzeNotes(octWindow(5), []domain.DailyNote{
		activeNote(1, "a"),
		activeNote(5, "b"),
	})
	if streak.ConsecutiveLeaveDays != 0 {
		t.Fatalf("streak got %d want 0", streak.ConsecutiveLeaveDays)
	}
	if streak.IsInactive() {
		t.Fatalf("expected active")
	}
	if *streak.LastActivityDate != domain.NewDate(2026, time.October, 5) {
		t.Fatalf("last activity got %s want 2026-10-05", streak.LastActivityDate)
	}
}

func TestAnalyzeNotesNoNotes(t *testing.T) {
	streak := AnalyzeNotes(octWindow(10), nil)
	if streak.ConsecutiveLeaveDays != 10 {
		t.Fatalf("streak got %d want 10", streak.ConsecutiveLeaveDays)
	}
	if streak.LastActivityDate != nil {
		t.Fatalf("last activity got %s want nil", streak.LastActivityDate)
	}
	if streak.TotalNotes != 0 {
		t.Fatalf("total notes got %d want 0", streak.TotalNotes)
	}
}

func TestAnalyzeNotesOnlyLeave(t *testing.T) {
	streak := AnalyzeNotes(octWindow(3), []domain.DailyNote{leaveNote(1), leaveNote(2), leaveNote(3)})
	if streak.ConsecutiveLeaveDays != 3 || streak.LastActivityDate != nil || streak.TotalNotes != 3 {
		t.Fatalf("got %+v", streak)
	}
}

func TestAnalyzeNotesEmptyWindow(t *testing.T) {
	streak := AnalyzeNotes(nil, nil)
	if streak.ConsecutiveLeaveDays != 0 || streak.IsInactive() || streak.LastActivityDate != nil {
		t.Fatalf("got %+v", streak)
	}
}

func TestAnalyzeNotesIgnoresWindowOrderAndIsIdempotent(t *testing.T) {
	window := octWindow(6)
	reversed := make([]domain.Date, len(window))
	for i, d := range window {
		reversed[len(window)-1-i] = d
	}
	notes := []domain.DailyNote{activeNote(2, "x"), leaveNote(4)}

	first := AnalyzeNotes(window, notes)
	second := AnalyzeNotes(reversed, notes)
	if first.ConsecutiveLeaveDays != 4 || second.ConsecutiveLeaveDays != 4 {
		t.Fatalf("streaks got %d and %d want 4", first.ConsecutiveLeaveDays, second.ConsecutiveLeaveDays)
	}
	if *first.LastActivityDate != *second.LastActivityDate {
		t.Fatalf("last activity differs: %s vs %s", first.LastActivityDate, second.LastActivityDate)
	}
}

func TestAnalyzeNotesDuplicateDatePrefersActive(t *testing.T) {
	notes := []domain.DailyNote{activeNote(3, "field work"), leaveNote(3)}
	streak := AnalyzeNotes(octWindow(3), notes)
	if streak.ConsecutiveLeaveDays != 0 {
		t.Fatalf("streak got %d want 0", streak.ConsecutiveLeaveDays)
	}
	if streak.TotalNotes != 2 {
		t.Fatalf("total notes got %d want 2", streak.TotalNotes)
	}

	reordered := AnalyzeNotes(octWindow(3), []domain.DailyNote{leaveNote(3), activeNote(3, "field work")})
	if reordered.ConsecutiveLeaveDays != 0 {
		t.Fatalf("reordered streak got %d want 0", reordered.ConsecutiveLeaveDays)
	}
}

func TestMostRecentActive(t *testing.T) {
	byDate := indexNotes([]domain.DailyNote{activeNote(1, "a"), activeNote(3, "b"), leaveNote(4)})
	got := mostRecentActive(octWindow(5), byDate)
	if got == nil || *got != domain.NewDate(2026, time.October, 3) {
		t.Fatalf("got %v want 2026-10-03", got)
	}
	if mostRecentActive(octWindow(5), indexNotes(nil)) != nil {
		t.Fatalf("expected nil without active notes")
	}
}
