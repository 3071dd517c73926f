package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"agentwatch/internal/domain"
)

const tPanchayaths = "panchayaths"

func (s *Store) ListPanchayaths(ctx context.Context) ([]domain.Panchayath, error) {
	rows, err := s.query(ctx, s.sb.Select("id", "name").From(tPanchayaths).OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list panchayaths: %w", err)
	}
	defer rows.Close()

	var out []domain.Panchayath
	for rows.Next() {
		var p domain.Panchayath
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPanchayath(ctx context.Context, id string) (domain.Panchayath, error) {
	return s.getPanchayath(ctx, sqrl.Eq{"id": id})
}

// FindPanchayath resolves an ID or, failing that, a case-insensitive name.
func (s *Store) FindPanchayath(ctx context.Context, idOrName string) (domain.Panchayath, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return domain.Panchayath{}, ErrNotFound
	}
	p, err := s.GetPanchayath(ctx, idOrName)
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}
	return s.getPanchayath(ctx, sqrl.Expr("LOWER(name) = ?", strings.ToLower(idOrName)))
}

func (s *Store) getPanchayath(ctx context.Context, where sqrl.Sqlizer) (domain.Panchayath, error) {
	query, args, err := s.sb.Select("id", "name").From(tPanchayaths).Where(where).OrderBy("id").Limit(1).ToSql()
	if err != nil {
		return domain.Panchayath{}, err
	}
	var p domain.Panchayath
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Panchayath{}, ErrNotFound
	}
	return p, err
}

// InsertPanchayath stores p, generating an ID when p.ID is empty.
func (s *Store) InsertPanchayath(ctx context.Context, p domain.Panchayath) (domain.Panchayath, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.exec(ctx, s.sb.Insert(tPanchayaths).Columns("id", "name").Values(p.ID, p.Name))
	if err != nil {
		return domain.Panchayath{}, fmt.Errorf("insert panchayath %s: %w", p.Name, err)
	}
	return p, nil
}
