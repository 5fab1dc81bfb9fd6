package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type App struct {
	HTTP  HTTP
	DB    Postgres
	MQ    Rabbit
	Store Store
	Agent Agent
}

type HTTP struct {
	Host string
	Port int
}

type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Rabbit struct {
	Host     string
	Port     int
	User     string
	Password string
	Enabled  bool
}

type Store struct {
	Backend string // memory | postgres
}

type Agent struct {
	FeedURL      string // streaming endpoint; poll url derived by stripping /stream
	TenantID     string
	PollInterval time.Duration
	GraceWindow  time.Duration
	AutoPrint    bool
	FrameSize    int // negotiated BLE link MTU payload
	Printer      AgentPrinter
}

type AgentPrinter struct {
	Kind     string // bluetooth | network | vendor-app | none
	Host     string
	Port     int
	Endpoint string
	APIKey   string
	Profile  string
}

func Load() (App, error) {
	_ = godotenv.Load()

	cfg := App{
		HTTP: HTTP{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 3000),
		},
		DB: Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "fulfillment"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		MQ: Rabbit{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvAsInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			Enabled:  getEnv("RABBITMQ_ENABLED", "true") == "true",
		},
		Store: Store{
			Backend: getEnv("STORE_BACKEND", "memory"),
		},
		Agent: Agent{
			FeedURL:      getEnv("AGENT_FEED_URL", "http://localhost:3000/api/fulfillment/orders/stream"),
			TenantID:     getEnv("AGENT_TENANT_ID", ""),
			PollInterval: getEnvAsDuration("AGENT_POLL_INTERVAL", 2*time.Second),
			GraceWindow:  getEnvAsDuration("AGENT_GRACE_WINDOW", 5*time.Second),
			AutoPrint:    getEnv("AGENT_AUTO_PRINT", "false") == "true",
			FrameSize:    getEnvAsInt("AGENT_BLE_FRAME_SIZE", 20),
			Printer: AgentPrinter{
				Kind:     getEnv("AGENT_PRINTER_KIND", "none"),
				Host:     getEnv("AGENT_PRINTER_HOST", ""),
				Port:     getEnvAsInt("AGENT_PRINTER_PORT", 9100),
				Endpoint: getEnv("AGENT_PRINTER_ENDPOINT", ""),
				APIKey:   getEnv("AGENT_PRINTER_API_KEY", ""),
				Profile:  getEnv("AGENT_PRINTER_PROFILE", "escpos-58mm"),
			},
		},
	}
	return cfg, cfg.validate()
}

func (c *App) validate() error {
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("HTTP_PORT is invalid")
	}
	switch c.Store.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("STORE_BACKEND must be memory or postgres, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && (c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "") {
		return fmt.Errorf("postgres config is incomplete")
	}
	return nil
}

func (h HTTP) Address() string { return fmt.Sprintf("%s:%d", h.Host, h.Port) }

func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

func (r Rabbit) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.User, r.Password, r.Host, r.Port)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
