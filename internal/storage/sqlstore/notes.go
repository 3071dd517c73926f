package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"agentwatch/internal/domain"
)

const tDailyNotes = "daily_notes"

// NotesForSubject returns the subject's notes dated from..to inclusive,
// ascending by date.
func (s *Store) NotesForSubject(ctx context.Context, subject domain.SubjectID, from, to domain.Date) ([]domain.DailyNote, error) {
	rows, err := s.query(ctx, s.sb.Select("mobile_number", "date", "is_leave", "activity").
		From(tDailyNotes).
		Where(sqrl.And{
			sqrl.Eq{"mobile_number": subject.String()},
			sqrl.GtOrEq{"date": from.String()},
			sqrl.LtOrEq{"date": to.String()},
		}).
		OrderBy("date"))
	if err != nil {
		return nil, fmt.Errorf("daily notes for %s: %w", subject, err)
	}
	defer rows.Close()

	var out []domain.DailyNote
	for rows.Next() {
		var (
			mobile   string
			rawDate  string
			isLeave  sql.NullBool
			activity sql.NullString
		)
		if err := rows.Scan(&mobile, &rawDate, &isLeave, &activity); err != nil {
			return nil, err
		}
		date, err := domain.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("daily note for %s: %w", subject, err)
		}
		out = append(out, domain.DailyNote{
			Subject:  domain.NewSubjectID(mobile),
			Date:     date,
			IsLeave:  isLeave.Bool,
			Activity: activity.String,
		})
	}
	return out, rows.Err()
}

// UpsertDailyNote writes the note for (subject, date), replacing any earlier one.
func (s *Store) UpsertDailyNote(ctx context.Context, note domain.DailyNote) error {
	if note.Subject.IsZero() || note.Date.IsZero() {
		return fmt.Errorf("daily note needs a subject and a date")
	}
	err := s.exec(ctx, s.sb.Insert(tDailyNotes).
		Columns("id", "mobile_number", "date", "is_leave", "activity").
		Values(uuid.NewString(), note.Subject.String(), note.Date.String(), note.IsLeave, note.Activity).
		Suffix("ON CONFLICT (mobile_number, date) DO UPDATE SET is_leave = excluded.is_leave, activity = excluded.activity"))
	if err != nil {
		return fmt.Errorf("upsert daily note %s %s: %w", note.Subject, note.Date, err)
	}
	return nil
}
