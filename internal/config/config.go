package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	defaultRequestTimeoutSeconds = 10
	defaultMaxConcurrentFetches  = 8
)

type Config struct {
	DBDriver       string `yaml:"db_driver"`
	DBPath         string `yaml:"db_path"`
	DatabaseURL    string `yaml:"database_url"`
	DBMaxOpenConns int    `yaml:"db_max_open_conns"`

	HTTPAddr              string `yaml:"http_addr"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	APIJWTSecret          string `yaml:"api_jwt_secret"`

	SlackBotToken   string   `yaml:"slack_bot_token"`
	SlackAppToken   string   `yaml:"slack_app_token"`
	ManagerSlackIDs []string `yaml:"manager_slack_ids"`
	ReportChannelID string   `yaml:"report_channel_id"`

	SweepSchedule   string `yaml:"sweep_schedule"`
	ReportOutputDir string `yaml:"report_output_dir"`

	LLMProvider       string `yaml:"llm_provider"`
	LLMModel          string `yaml:"llm_model"`
	LLMSummaryEnabled bool   `yaml:"llm_summary_enabled"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`

	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	MaxConcurrentFetches       int    `yaml:"max_concurrent_fetches"`
	Timezone                   string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// SweepParser accepts standard 5-field cron expressions.
var SweepParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func LoadConfig() Config {
	loadDotEnv()

	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.DBDriver, "DB_DRIVER")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverrideInt(&cfg.DBMaxOpenConns, "DB_MAX_OPEN_CONNS")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverrideInt(&cfg.RequestTimeoutSeconds, "REQUEST_TIMEOUT_SECONDS")
	envOverride(&cfg.APIJWTSecret, "API_JWT_SECRET")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverrideAllowEmpty(&cfg.SweepSchedule, "SWEEP_SCHEDULE")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideBool(&cfg.LLMSummaryEnabled, "LLM_SUMMARY_ENABLED")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.MaxConcurrentFetches, "MAX_CONCURRENT_FETCHES")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if ids := os.Getenv("MANAGER_SLACK_IDS"); ids != "" {
		cfg.ManagerSlackIDs = nil
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.ManagerSlackIDs = append(cfg.ManagerSlackIDs, id)
			}
		}
	}

	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite3"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./agentwatch.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.MaxConcurrentFetches == 0 {
		cfg.MaxConcurrentFetches = defaultMaxConcurrentFetches
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	if err := cfg.validate(); err != nil {
		log.Fatalf("%v", err)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if !cfg.SlackConfigured() {
		log.Printf("WARNING: Slack is not configured. Only the HTTP API will be served.")
	}

	return cfg
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite3":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when db_driver=postgres")
		}
	default:
		return fmt.Errorf("db_driver must be 'sqlite3' or 'postgres', got '%s'", c.DBDriver)
	}

	if (c.SlackBotToken == "") != (c.SlackAppToken == "") {
		return errors.New("slack_bot_token and slack_app_token must be set together")
	}

	if c.LLMSummaryEnabled {
		switch c.LLMProvider {
		case "anthropic":
			if c.AnthropicAPIKey == "" {
				return errors.New("anthropic_api_key is required when llm_provider=anthropic")
			}
		case "openai":
			if c.OpenAIAPIKey == "" {
				return errors.New("openai_api_key is required when llm_provider=openai")
			}
		default:
			return fmt.Errorf("llm_provider must be 'anthropic' or 'openai', got '%s'", c.LLMProvider)
		}
	}

	if c.SweepSchedule != "" {
		if _, err := SweepParser.Parse(c.SweepSchedule); err != nil {
			return fmt.Errorf("invalid sweep_schedule '%s': %v", c.SweepSchedule, err)
		}
	}
	if c.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("invalid request_timeout_seconds '%d': must be >= 1", c.RequestTimeoutSeconds)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	if c.MaxConcurrentFetches < 1 {
		return fmt.Errorf("invalid max_concurrent_fetches '%d': must be >= 1", c.MaxConcurrentFetches)
	}
	if c.DBMaxOpenConns < 0 {
		return fmt.Errorf("invalid db_max_open_conns '%d': must be >= 0", c.DBMaxOpenConns)
	}
	return nil
}

// loadDotEnv reads .env (or DOTENV_PATH) into the environment. Variables that
// are already set win.
func loadDotEnv() {
	path := ".env"
	if p := os.Getenv("DOTENV_PATH"); p != "" {
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("WARNING: failed to load %s: %v", path, err)
		return
	}
	log.Printf("Loaded environment from %s", path)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// DSN is the data source name handed to the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
