package app

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"

	"agentwatch/internal/api"
	"agentwatch/internal/config"
	"agentwatch/internal/httpx"
	"agentwatch/internal/integrations/llm"
	slackbot "agentwatch/internal/integrations/slack"
	"agentwatch/internal/performance"
	"agentwatch/internal/storage/sqlstore"
	"agentwatch/internal/sweep"
)

const shutdownTimeout = 10 * time.Second

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := configureHTTP(cfg)
	log.Printf(
		"Config loaded. DBDriver=%s HTTPAddr=%s Managers=%d Timezone=%s SweepSchedule=%q LLMSummary=%v MaxConcurrentFetches=%d ExternalHTTPTimeout=%s",
		cfg.DBDriver,
		cfg.HTTPAddr,
		len(cfg.ManagerSlackIDs),
		cfg.Timezone,
		cfg.SweepSchedule,
		cfg.LLMSummaryEnabled,
		cfg.MaxConcurrentFetches,
		appliedHTTPTimeout,
	)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer store.Close()
	log.Printf("Database ready driver=%s", store.Driver())

	if err := os.MkdirAll(cfg.ReportOutputDir, 0755); err != nil {
		log.Fatalf("Failed to create report output dir: %v", err)
	}
	log.Printf("Report output dir: %s", cfg.ReportOutputDir)

	svc := performance.NewService(store, store,
		performance.WithLocation(cfg.Location),
		performance.WithMaxConcurrency(cfg.MaxConcurrentFetches),
	)

	runner := &sweep.Runner{Panchayaths: store, Analyzer: svc, OutputDir: cfg.ReportOutputDir}
	if cfg.LLMSummaryEnabled {
		runner.Summarizer = llm.NewClient(cfg)
		log.Printf("LLM summaries enabled provider=%s", cfg.LLMProvider)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.New(store, svc, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
		JWTSecret:      cfg.APIJWTSecret,
	})
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Listen(cfg.HTTPAddr)
	}()

	if cfg.SlackConfigured() {
		slackAPI := slack.New(
			cfg.SlackBotToken,
			slack.OptionAppLevelToken(cfg.SlackAppToken),
			slack.OptionHTTPClient(httpx.ExternalHTTPClient()),
		)
		sweep.StartScheduler(ctx, cfg.SweepSchedule, cfg.Location, runner, slackAPI, cfg.ReportChannelID)

		bot := slackbot.New(slackAPI, store, svc, runner, cfg.ManagerSlackIDs)
		go func() {
			if err := bot.Run(ctx, slackAPI); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Slack bot error: %v", err)
			}
		}()
	} else {
		sweep.StartScheduler(ctx, cfg.SweepSchedule, cfg.Location, runner, nil, "")
	}

	log.Println("Starting agent performance service...")
	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Printf("HTTP server error: %v", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	log.Println("Stopped")
}

// configureHTTP applies the configured timeout to the shared client used by
// Slack and the LLM providers.
func configureHTTP(cfg config.Config) time.Duration {
	return httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
}

func openStore(cfg config.Config) (*sqlstore.Store, error) {
	if cfg.DBDriver == sqlstore.DriverSQLite {
		return sqlstore.InitDB(cfg.DSN())
	}
	return sqlstore.Open(cfg.DBDriver, cfg.DSN(), cfg.DBMaxOpenConns)
}
