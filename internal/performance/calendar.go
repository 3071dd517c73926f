package performance

import (
	"strings"

	"agentwatch/internal/domain"
)

const previewMaxRunes = 20

// BuildCalendar maps every day of month, including days after today, to a
// display status.
func BuildCalendar(month domain.YearMonth, notes []domain.DailyNote, today domain.Date) domain.Calendar {
	byDate := indexNotes(notes)
	days := month.Days()

	cal := domain.Calendar{Month: month, Days: make([]domain.CalendarDay, 0, len(days))}
	if len(days) > 0 {
		cal.LeadingBlanks = int(days[0].Weekday())
	}
	for _, d := range days {
		day := domain.CalendarDay{Date: d, Status: domain.DayNoData, IsToday: d == today}
		if note, ok := byDate[d]; ok {
			day.Status = dayStatus(note)
			if day.Status == domain.DayActive {
				day.Preview = previewActivity(note.Activity)
			}
		}
		cal.Days = append(cal.Days, day)
	}
	return cal
}

func dayStatus(note domain.DailyNote) domain.DayStatus {
	switch {
	case note.IsLeave:
		return domain.DayLeave
	case note.HasActivity():
		return domain.DayActive
	default:
		return domain.DayNoActivity
	}
}

func previewActivity(activity string) string {
	runes := []rune(strings.TrimSpace(activity))
	if len(runes) <= previewMaxRunes {
		return string(runes)
	}
	return string(runes[:previewMaxRunes]) + "..."
}
