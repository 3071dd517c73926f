package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"agentwatch/internal/domain"
)

// Each role keeps its roster in its own table.
var roleTables = map[domain.Role]string{
	domain.RoleCoordinator: "coordinators",
	domain.RoleSupervisor:  "supervisors",
	domain.RoleGroupLeader: "group_leaders",
	domain.RolePRO:         "pros",
}

var agentColumns = []string{"id", "name", "mobile_number", "panchayath_id"}

func tableFor(role domain.Role) (string, error) {
	table, ok := roleTables[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return table, nil
}

// ListAgents returns the roster of one role in a panchayath, ordered by name.
func (s *Store) ListAgents(ctx context.Context, panchayathID string, role domain.Role) ([]domain.Agent, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, s.sb.Select(agentColumns...).From(table).
		Where(sqrl.Eq{"panchayath_id": panchayathID}).
		OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	return scanAgents(rows, role)
}

func (s *Store) GetAgent(ctx context.Context, role domain.Role, id string) (domain.Agent, error) {
	table, err := tableFor(role)
	if err != nil {
		return domain.Agent{}, err
	}
	query, args, err := s.sb.Select(agentColumns...).From(table).Where(sqrl.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return domain.Agent{}, err
	}
	a := domain.Agent{Role: role}
	var mobile sql.NullString
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Name, &mobile, &a.PanchayathID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, ErrNotFound
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	a.MobileNumber = mobile.String
	return a, nil
}

// FindAgentsByMobile returns every agent, across all roles, whose contact
// number matches. More than one result means the number is shared.
func (s *Store) FindAgentsByMobile(ctx context.Context, mobile string) ([]domain.Agent, error) {
	subject := domain.NewSubjectID(mobile)
	if subject.IsZero() {
		return nil, nil
	}
	var out []domain.Agent
	for _, role := range domain.Roles {
		table := roleTables[role]
		rows, err := s.query(ctx, s.sb.Select(agentColumns...).From(table).
			Where(sqrl.Eq{"mobile_number": subject.String()}).
			OrderBy("name", "id"))
		if err != nil {
			return nil, fmt.Errorf("find %s by mobile: %w", table, err)
		}
		agents, err := scanAgents(rows, role)
		rows.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, agents...)
	}
	return out, nil
}

// InsertAgent stores a into its role's table, generating an ID when a.ID is empty.
func (s *Store) InsertAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	table, err := tableFor(a.Role)
	if err != nil {
		return domain.Agent{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err = s.exec(ctx, s.sb.Insert(table).Columns(agentColumns...).
		Values(a.ID, a.Name, a.MobileNumber, a.PanchayathID))
	if err != nil {
		return domain.Agent{}, fmt.Errorf("insert %s %s: %w", table, a.Name, err)
	}
	return a, nil
}

func scanAgents(rows *sql.Rows, role domain.Role) ([]domain.Agent, error) {
	var out []domain.Agent
	for rows.Next() {
		a := domain.Agent{Role: role}
		var mobile sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &mobile, &a.PanchayathID); err != nil {
			return nil, err
		}
		a.MobileNumber = mobile.String
		out = append(out, a)
	}
	return out, rows.Err()
}
