package performance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"agentwatch/internal/domain"
)

const defaultMaxConcurrency = 8

// Report is the performance of every agent in one panchayath for one month.
type Report struct {
	PanchayathID   string                     `json:"panchayath_id"`
	Month          domain.YearMonth           `json:"month"`
	WindowStart    domain.Date                `json:"window_start"`
	WindowEnd      domain.Date                `json:"window_end"`
	Results        []domain.PerformanceResult `json:"results"`
	Stats          domain.PerformanceStats    `json:"stats"`
	Groups         []RoleGroup                `json:"groups"`
	RosterErrors   []RoleError                `json:"roster_errors,omitempty"`
	SharedSubjects []domain.SubjectID         `json:"shared_subjects,omitempty"`
}

// Degraded counts agents whose notes could not be read and were reported
// with zero values.
func (r Report) Degraded() int {
	n := 0
	for _, res := range r.Results {
		if res.Degraded {
			n++
		}
	}
	return n
}

type RoleError struct {
	Role    domain.Role `json:"role"`
	Message string      `json:"error"`
	Err     error       `json:"-"`
}

type Service struct {
	roster         RosterSource
	notes          NoteSource
	now            func() time.Time
	loc            *time.Location
	maxConcurrency int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

func NewService(roster RosterSource, notes NoteSource, opts ...Option) *Service {
	s := &Service{
		roster:         roster,
		notes:          notes,
		now:            time.Now,
		loc:            time.Local,
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() domain.Date {
	return domain.DateOf(s.now().In(s.loc))
}

// ComputePerformance analyzes every coordinator, supervisor, group leader and
// PRO of the panchayath over the activity window of month. A role whose
// roster fails to load is left out and noted in RosterErrors; an agent whose
// notes fail to load is reported with zero values. Only when every roster
// fails does it return ErrRosterUnavailable.
func (s *Service) ComputePerformance(ctx context.Context, panchayathID string, month domain.YearMonth) (Report, error) {
	panchayathID = strings.TrimSpace(panchayathID)
	if panchayathID == "" || !month.Valid() {
		return Report{}, ErrNoSelection
	}

	window := domain.ActivityWindow(month, s.Today())
	report := Report{PanchayathID: panchayathID, Month: month}
	if len(window) > 0 {
		report.WindowStart = window[0]
		report.WindowEnd = window[len(window)-1]
	}

	agents, roleErrs := s.loadRosters(ctx, panchayathID)
	report.RosterErrors = roleErrs
	if len(roleErrs) == len(domain.Roles) {
		errs := make([]error, 0, len(roleErrs))
		for _, re := range roleErrs {
			errs = append(errs, re.Err)
		}
		return report, fmt.Errorf("%w: %w", ErrRosterUnavailable, errors.Join(errs...))
	}

	shared := sharedSubjects(agents)
	results := s.analyzeAll(ctx, agents, window)
	for i := range results {
		if shared[domain.NewSubjectID(results[i].MobileNumber)] {
			results[i].SharedSubject = true
		}
	}
	for subject := range shared {
		report.SharedSubjects = append(report.SharedSubjects, subject)
	}
	sort.Slice(report.SharedSubjects, func(i, j int) bool { return report.SharedSubjects[i] < report.SharedSubjects[j] })

	report.Results = results
	report.Stats = Aggregate(results)
	report.Groups = GroupByRole(results)

	log.Printf("performance panchayath=%s month=%s window=%d agents=%d inactive=%d degraded=%d",
		panchayathID, month, len(window), report.Stats.TotalAgents, report.Stats.InactiveAgents, report.Degraded())
	return report, nil
}

// ComputeAgentCalendar builds the full-month calendar for one agent.
func (s *Service) ComputeAgentCalendar(ctx context.Context, agent domain.Agent, month domain.YearMonth) (domain.Calendar, error) {
	if !month.Valid() {
		return domain.Calendar{}, ErrNoSelection
	}
	var notes []domain.DailyNote
	if subject := agent.Subject(); !subject.IsZero() {
		var err error
		notes, err = s.notes.NotesForSubject(ctx, subject, month.FirstDay(), month.LastDay())
		if err != nil {
			return domain.Calendar{}, fmt.Errorf("fetch daily notes for %s: %w", agent.Name, err)
		}
	}
	return BuildCalendar(month, notes, s.Today()), nil
}

func (s *Service) loadRosters(ctx context.Context, panchayathID string) ([]domain.Agent, []RoleError) {
	rosters := make([][]domain.Agent, len(domain.Roles))
	errs := make([]error, len(domain.Roles))

	var g errgroup.Group
	for i, role := range domain.Roles {
		g.Go(func() error {
			agents, err := s.roster.ListAgents(ctx, panchayathID, role)
			if err != nil {
				errs[i] = err
				return nil
			}
			for j := range agents {
				agents[j].Role = role
			}
			rosters[i] = agents
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Agent
	var roleErrs []RoleError
	for i, role := range domain.Roles {
		if errs[i] != nil {
			log.Printf("performance roster error panchayath=%s role=%s: %v", panchayathID, role, errs[i])
			roleErrs = append(roleErrs, RoleError{Role: role, Message: errs[i].Error(), Err: errs[i]})
			continue
		}
		all = append(all, rosters[i]...)
	}
	return all, roleErrs
}

func (s *Service) analyzeAll(ctx context.Context, agents []domain.Agent, window []domain.Date) []domain.PerformanceResult {
	results := make([]domain.PerformanceResult, len(agents))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, agent := range agents {
		g.Go(func() error {
			results[i] = s.analyzeAgent(ctx, agent, window)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) analyzeAgent(ctx context.Context, agent domain.Agent, window []domain.Date) domain.PerformanceResult {
	result := resultFor(agent)
	if len(window) == 0 {
		return result
	}

	subject := agent.Subject()
	if subject.IsZero() {
		log.Printf("performance agent without contact number agent=%s role=%s", agent.ID, agent.Role)
		return applyStreak(result, AnalyzeNotes(window, nil))
	}

	notes, err := s.notes.NotesForSubject(ctx, subject, window[0], window[len(window)-1])
	if err != nil {
		log.Printf("performance notes error agent=%s role=%s subject=%s: %v", agent.ID, agent.Role, subject, err)
		result.Degraded = true
		return result
	}
	if dupes := duplicateDates(notes); dupes > 0 {
		log.Printf("performance duplicate notes agent=%s subject=%s dates=%d", agent.ID, subject, dupes)
	}
	return applyStreak(result, AnalyzeNotes(window, notes))
}

func sharedSubjects(agents []domain.Agent) map[domain.SubjectID]bool {
	roles := make(map[domain.SubjectID]map[domain.Role]bool)
	for _, a := range agents {
		subject := a.Subject()
		if subject.IsZero() {
			continue
		}
		if roles[subject] == nil {
			roles[subject] = make(map[domain.Role]bool)
		}
		roles[subject][a.Role] = true
	}
	shared := make(map[domain.SubjectID]bool)
	for subject, rs := range roles {
		if len(rs) > 1 {
			log.Printf("performance shared subject=%s roles=%d", subject, len(rs))
			shared[subject] = true
		}
	}
	return shared
}

func duplicateDates(notes []domain.DailyNote) int {
	seen := make(map[domain.Date]int, len(notes))
	dupes := 0
	for _, n := range notes {
		seen[n.Date]++
		if seen[n.Date] == 2 {
			dupes++
		}
	}
	return dupes
}
