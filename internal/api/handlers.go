package api

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
	"agentwatch/internal/report"
	"agentwatch/internal/storage/sqlstore"
)

const monthOptions = 12

type monthQuery struct {
	Month string `query:"month" validate:"omitempty,datetime=2006-01"`
}

type agentPath struct {
	Role string `validate:"required,oneof=coordinator supervisor group_leader pro"`
	ID   string `validate:"required"`
}

type monthOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) listMonths(c *fiber.Ctx) error {
	months := domain.RecentMonths(s.analyzer.Today(), monthOptions)
	out := make([]monthOption, 0, len(months))
	for _, m := range months {
		out = append(out, monthOption{Value: m.String(), Label: m.Label()})
	}
	return c.JSON(fiber.Map{"months": out})
}

func (s *Server) listPanchayaths(c *fiber.Ctx) error {
	panchayaths, err := s.store.ListPanchayaths(c.UserContext())
	if err != nil {
		log.Printf("api list panchayaths error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch panchayaths"})
	}
	if panchayaths == nil {
		panchayaths = []domain.Panchayath{}
	}
	return c.JSON(fiber.Map{"panchayaths": panchayaths, "count": len(panchayaths)})
}

func (s *Server) getPerformance(c *fiber.Ctx) error {
	month, err := s.monthParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month. Use YYYY-MM"})
	}

	ctx := c.UserContext()
	p, err := s.store.GetPanchayath(ctx, c.Params("id"))
	if errors.Is(err, sqlstore.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Panchayath not found"})
	}
	if err != nil {
		log.Printf("api get panchayath error id=%s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch panchayath"})
	}

	rep, err := s.analyzer.ComputePerformance(ctx, p.ID, month)
	switch {
	case errors.Is(err, performance.ErrNoSelection):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Select a panchayath and month"})
	case errors.Is(err, performance.ErrRosterUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch performance data"})
	case err != nil:
		log.Printf("api performance error panchayath=%s: %v", p.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch performance data"})
	}

	warnings := report.Warnings(rep)
	if warnings == nil {
		warnings = []string{}
	}
	return c.JSON(fiber.Map{
		"panchayath":  p,
		"month_label": month.Label(),
		"report":      rep,
		"warnings":    warnings,
	})
}

func (s *Server) getAgentCalendar(c *fiber.Ctx) error {
	path := agentPath{Role: c.Params("role"), ID: c.Params("id")}
	if role, err := domain.ParseRole(path.Role); err == nil {
		path.Role = string(role)
	}
	if err := s.validate.Struct(path); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid agent role or id", "fields": fieldErrors(err)})
	}
	month, err := s.monthParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid month. Use YYYY-MM"})
	}

	ctx := c.UserContext()
	agent, err := s.store.GetAgent(ctx, domain.Role(path.Role), path.ID)
	if errors.Is(err, sqlstore.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Agent not found"})
	}
	if err != nil {
		log.Printf("api get agent error role=%s id=%s: %v", path.Role, path.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch agent"})
	}

	cal, err := s.analyzer.ComputeAgentCalendar(ctx, agent, month)
	if err != nil {
		log.Printf("api calendar error agent=%s: %v", agent.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch daily notes"})
	}
	return c.JSON(fiber.Map{
		"agent":       agent,
		"role_label":  agent.Role.DisplayName(),
		"month_label": month.Label(),
		"calendar":    cal,
	})
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func (s *Server) monthParam(c *fiber.Ctx) (domain.YearMonth, error) {
	var q monthQuery
	if err := c.QueryParser(&q); err != nil {
		return domain.YearMonth{}, err
	}
	if err := s.validate.Struct(q); err != nil {
		return domain.YearMonth{}, err
	}
	if q.Month == "" {
		return s.analyzer.Today().YearMonth(), nil
	}
	return domain.ParseYearMonth(q.Month)
}

func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			out[e.Field()] = e.Tag()
		}
	}
	return out
}
