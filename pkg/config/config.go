// Package config loads the server configuration from an optional YAML
// file, a .env file and TRANSIT_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"transit_router/pkg/access"
	"transit_router/pkg/pareto"
	"transit_router/pkg/path"
	"transit_router/pkg/raptor"
	"transit_router/pkg/transfer"
)

// Config is the full server configuration.
type Config struct {
	Server  Server            `yaml:"server"`
	Data    Data              `yaml:"data"`
	Search  Search            `yaml:"search"`
	Cost    raptor.CostParams `yaml:"cost"`
	Access  access.Params     `yaml:"access"`
	Ranking Ranking           `yaml:"ranking"`
}

// Server configures the HTTP listener.
type Server struct {
	Port           int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout    time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	MaxConcurrent  int           `yaml:"maxConcurrent" validate:"gte=1"`
	CORSOrigin     string        `yaml:"corsOrigin"`
}

// Data locates the compiled timetable.
type Data struct {
	Timetable string `yaml:"timetable" validate:"required"`
}

// Search holds the defaults and limits applied to every plan request.
// Windows and steps are in seconds.
type Search struct {
	SearchWindow    int     `yaml:"searchWindow" validate:"gte=0"`
	MaxSearchWindow int     `yaml:"maxSearchWindow" validate:"gte=0"`
	IterationStep   int     `yaml:"iterationStep" validate:"gt=0"`
	MaxRounds       int     `yaml:"maxRounds" validate:"gte=1,lte=32"`
	CostMode        string  `yaml:"costMode" validate:"oneof=none c1 c1_and_c2 c1_relaxed_if_c2_optimal"`
	RelaxRatio      float64 `yaml:"relaxRatio" validate:"omitempty,gte=1"`
	RelaxSlack      int     `yaml:"relaxSlack" validate:"gte=0"`
	Mode            string  `yaml:"mode" validate:"oneof=walk bike car"`
}

// Ranking configures the path ranking costs.
type Ranking struct {
	PriorityCosts path.PriorityCosts      `yaml:"priorityCosts"`
	WaitTime      path.WaitTimeCostParams `yaml:"waitTime"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:           8080,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			RequestTimeout: 5 * time.Second,
			MaxConcurrent:  16,
		},
		Data: Data{Timetable: "timetable.bin"},
		Search: Search{
			SearchWindow:    1800,
			MaxSearchWindow: 4 * 3600,
			IterationStep:   60,
			MaxRounds:       6,
			CostMode:        pareto.CostC1.String(),
			Mode:            "walk",
		},
		Cost:    raptor.DefaultCostParams(),
		Access:  access.DefaultParams(),
		Ranking: Ranking{PriorityCosts: path.DefaultPriorityCosts()},
	}
}

// Load builds the configuration. An empty filename skips the YAML file.
func Load(filename string) (*Config, error) {
	// Load .env into the environment; a missing file is fine.
	_ = godotenv.Load()

	cfg := Default()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", filename, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Search.MaxSearchWindow > 0 && c.Search.SearchWindow > c.Search.MaxSearchWindow {
		return fmt.Errorf("invalid config: search window %d exceeds max %d", c.Search.SearchWindow, c.Search.MaxSearchWindow)
	}
	return nil
}

// SearchParams returns the default search parameters for a departure time.
func (c *Config) SearchParams(departure int) (raptor.SearchParams, error) {
	cost, err := pareto.ParseCost(c.Search.CostMode)
	if err != nil {
		return raptor.SearchParams{}, err
	}
	mode, err := transfer.ParseMode(c.Search.Mode)
	if err != nil {
		return raptor.SearchParams{}, err
	}
	relax := pareto.NoRelax
	if c.Search.RelaxRatio != 0 || c.Search.RelaxSlack != 0 {
		relax = pareto.RelaxFunction{Ratio: c.Search.RelaxRatio, Slack: c.Search.RelaxSlack}
	}
	return raptor.SearchParams{
		EarliestDeparture: departure,
		SearchWindow:      c.Search.SearchWindow,
		IterationStep:     c.Search.IterationStep,
		MaxRounds:         c.Search.MaxRounds,
		Cost:              cost,
		Relax:             relax,
		Mode:              mode,
	}, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Server.Port) }

func (c *Config) applyEnv() error {
	var errs []error
	c.Server.Port = envInt("TRANSIT_PORT", c.Server.Port, &errs)
	c.Server.MaxConcurrent = envInt("TRANSIT_MAX_CONCURRENT", c.Server.MaxConcurrent, &errs)
	c.Server.RequestTimeout = envDuration("TRANSIT_REQUEST_TIMEOUT", c.Server.RequestTimeout, &errs)
	c.Server.CORSOrigin = envStr("TRANSIT_CORS_ORIGIN", c.Server.CORSOrigin)
	c.Data.Timetable = envStr("TRANSIT_TIMETABLE", c.Data.Timetable)
	c.Search.SearchWindow = envInt("TRANSIT_SEARCH_WINDOW", c.Search.SearchWindow, &errs)
	c.Search.MaxRounds = envInt("TRANSIT_MAX_ROUNDS", c.Search.MaxRounds, &errs)
	c.Search.CostMode = envStr("TRANSIT_COST_MODE", c.Search.CostMode)
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// InitLogging configures the standard logger for the server.
func InitLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
