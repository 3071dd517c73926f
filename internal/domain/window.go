package domain

// ActivityWindow returns the dates of month from the 1st through the last
// day of the month or today, whichever is earlier. Days after today are never
// part of the window, so a month entirely in the future yields no dates.
func ActivityWindow(month YearMonth, today Date) []Date {
	if !month.Valid() {
		return nil
	}
	end := month.LastDay()
	if today.Before(end) {
		end = today
	}
	var dates []Date
	for d := month.FirstDay(); !d.After(end); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}
