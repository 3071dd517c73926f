package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleSupervisor  Role = "supervisor"
	RoleGroupLeader Role = "group_leader"
	RolePRO         Role = "pro"
)

// Roles lists every agent role in report order.
var Roles = []Role{RoleCoordinator, RoleSupervisor, RoleGroupLeader, RolePRO}

func (r Role) Valid() bool {
	switch r {
	case RoleCoordinator, RoleSupervisor, RoleGroupLeader, RolePRO:
		return true
	default:
		return false
	}
}

func (r Role) DisplayName() string {
	switch r {
	case RoleGroupLeader:
		return "Group Leader"
	case RolePRO:
		return "PRO"
	case "":
		return ""
	default:
		s := string(r)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

func (r Role) PluralName() string {
	return r.DisplayName() + "s"
}

func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	r := Role(normalized)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// SubjectID joins daily notes to agents. It is the agent's contact number,
// which is unique only by convention across the four role tables.
type SubjectID string

func NewSubjectID(raw string) SubjectID {
	return SubjectID(strings.TrimSpace(raw))
}

func (s SubjectID) IsZero() bool   { return s == "" }
func (s SubjectID) String() string { return string(s) }

type Panchayath struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MobileNumber string `json:"mobile_number"`
	PanchayathID string `json:"panchayath_id"`
	Role         Role   `json:"role"`
}

func (a Agent) Subject() SubjectID {
	return NewSubjectID(a.MobileNumber)
}

type DailyNote struct {
	Subject  SubjectID `json:"subject_id"`
	Date     Date      `json:"date"`
	IsLeave  bool      `json:"is_leave"`
	Activity string    `json:"activity"`
}

func (n DailyNote) HasActivity() bool {
	return strings.TrimSpace(n.Activity) != ""
}

// IsActive reports whether the note counts as a worked day. The activity
// text decides, the leave flag alone does not.
func (n DailyNote) IsActive() bool {
	return !n.IsLeave && n.HasActivity()
}

type PerformanceResult struct {
	AgentID              string `json:"agent_id"`
	AgentName            string `json:"agent_name"`
	AgentType            Role   `json:"agent_type"`
	MobileNumber         string `json:"mobile_number"`
	ConsecutiveLeaveDays int    `json:"consecutive_leave_days"`
	IsInactive           bool   `json:"is_inactive"`
	LastActivityDate     *Date  `json:"last_activity_date"`
	TotalNotes           int    `json:"total_notes"`
	SharedSubject        bool   `json:"shared_subject,omitempty"`
	Degraded             bool   `json:"-"`
}

type PerformanceStats struct {
	TotalAgents        int     `json:"total_agents"`
	InactiveAgents     int     `json:"inactive_agents"`
	InactivePercentage float64 `json:"inactive_percentage"`
}

type DayStatus string

const (
	DayLeave      DayStatus = "leave"
	DayActive     DayStatus = "active"
	DayNoActivity DayStatus = "no-activity"
	DayNoData     DayStatus = "no-data"
)

type CalendarDay struct {
	Date    Date      `json:"date"`
	Status  DayStatus `json:"status"`
	Preview string    `json:"preview,omitempty"`
	IsToday bool      `json:"is_today,omitempty"`
}

// Calendar is a month grid starting on Sunday; LeadingBlanks is the number
// of empty cells before the 1st.
type Calendar struct {
	Month         YearMonth     `json:"month"`
	LeadingBlanks int           `json:"leading_blanks"`
	Days          []CalendarDay `json:"days"`
}
