// Package api serves performance reports and agent calendars over HTTP.
package api

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
)

const defaultRequestTimeout = 10 * time.Second

type Store interface {
	ListPanchayaths(ctx context.Context) ([]domain.Panchayath, error)
	GetPanchayath(ctx context.Context, id string) (domain.Panchayath, error)
	GetAgent(ctx context.Context, role domain.Role, id string) (domain.Agent, error)
}

type Analyzer interface {
	ComputePerformance(ctx context.Context, panchayathID string, month domain.YearMonth) (performance.Report, error)
	ComputeAgentCalendar(ctx context.Context, agent domain.Agent, month domain.YearMonth) (domain.Calendar, error)
	Today() domain.Date
}

type Options struct {
	RequestTimeout time.Duration
	// JWTSecret enables bearer authentication on /api routes when set.
	JWTSecret string
}

type Server struct {
	app      *fiber.App
	store    Store
	analyzer Analyzer
	validate *validator.Validate
}

func New(store Store, analyzer Analyzer, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           90 * time.Second,
	})
	s := &Server{app: app, store: store, analyzer: analyzer, validate: validator.New()}

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(requestContext(opts.RequestTimeout))
	app.Use(logger.New(logger.Config{
		Format: "[REQ] id=${locals:reqid} ${method} ${path} status=${status} dur=${latency}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api")
	if opts.JWTSecret != "" {
		api.Use(jwtMiddleware(opts.JWTSecret))
	} else {
		log.Println("WARNING: api_jwt_secret not set, /api routes are unauthenticated")
	}
	api.Get("/months", s.listMonths)
	api.Get("/panchayaths", s.listPanchayaths)
	api.Get("/panchayaths/:id/performance", s.getPerformance)
	api.Get("/agents/:role/:id/calendar", s.getAgentCalendar)

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	log.Printf("HTTP API listening on %s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestContext tags each request with an ID and bounds it with timeout.
func requestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
