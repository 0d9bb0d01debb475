// Package config loads process settings from the environment and economy
// settings from YAML.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/lootsheet/internal/core/currency"
	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/service"
)

// Server holds the process settings.
type Server struct {
	HTTPAddr string `env:"LOOTSHEET_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"LOOTSHEET_GRPC_ADDR" envDefault:":50051"`

	// StoreDriver is "sqlite" or "mysql".
	StoreDriver string `env:"LOOTSHEET_STORE_DRIVER" envDefault:"sqlite"`
	StoreDSN    string `env:"LOOTSHEET_STORE_DSN" envDefault:"file:lootsheet.db?_pragma=busy_timeout(5000)"`

	// RedisAddr enables the shared bus and presence when set; otherwise the
	// server mediates requests in process.
	RedisAddr string `env:"LOOTSHEET_REDIS_ADDR"`

	AuthorityID string `env:"LOOTSHEET_AUTHORITY_ID" envDefault:"gm"`
	// AuthorityToken is the bearer token HTTP callers present to act as the
	// authority. Authority-only endpoints are closed while it is empty.
	AuthorityToken string `env:"LOOTSHEET_AUTHORITY_TOKEN"`

	SceneID        string        `env:"LOOTSHEET_SCENE_ID"`
	HeartbeatEvery time.Duration `env:"LOOTSHEET_HEARTBEAT_EVERY" envDefault:"10s"`
	PresenceTTL    time.Duration `env:"LOOTSHEET_PRESENCE_TTL" envDefault:"30s"`
	QueueSize      int           `env:"LOOTSHEET_QUEUE_SIZE" envDefault:"1024"`

	EconomyFile string `env:"LOOTSHEET_ECONOMY_FILE"`
	SeedFile    string `env:"LOOTSHEET_SEED_FILE"`
	ChatLogDir  string `env:"LOOTSHEET_CHATLOG_DIR" envDefault:"data/chat"`
	LogLevel    string `env:"LOOTSHEET_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	switch cfg.StoreDriver {
	case "sqlite", "mysql":
	default:
		return cfg, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	if cfg.PresenceTTL <= cfg.HeartbeatEvery {
		return cfg, fmt.Errorf("presence ttl %s must exceed heartbeat interval %s", cfg.PresenceTTL, cfg.HeartbeatEvery)
	}
	return cfg, nil
}

// Economy is the game-side configuration every transfer runs under.
type Economy struct {
	Rates             []Denomination `yaml:"rates"`
	RemoveEmptyStacks bool           `yaml:"remove_empty_stacks"`
	BuyChat           bool           `yaml:"buy_chat"`
}

type Denomination struct {
	Symbol string `yaml:"symbol"`
	Weight string `yaml:"weight"`
}

// LoadEconomy reads path over the defaults. An empty path returns the
// defaults.
func LoadEconomy(path string) (Economy, error) {
	cfg := defaultEconomy()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("economy.yaml: %w", err)
	}
	if _, err := cfg.Settings(); err != nil {
		return cfg, fmt.Errorf("economy.yaml: %w", err)
	}
	return cfg, nil
}

func defaultEconomy() Economy {
	var denoms []Denomination
	for _, d := range currency.DefaultRates() {
		denoms = append(denoms, Denomination{Symbol: d.Symbol, Weight: d.Weight.String()})
	}
	return Economy{Rates: denoms, BuyChat: true}
}

// Settings converts the economy into service settings, validating the rates
// table.
func (e Economy) Settings() (service.Settings, error) {
	rates := make(currency.Rates, 0, len(e.Rates))
	for _, d := range e.Rates {
		w, err := decimal.NewFromString(strings.TrimSpace(d.Weight))
		if err != nil {
			return service.Settings{}, fmt.Errorf("rate %s: %w", d.Symbol, err)
		}
		rates = append(rates, currency.Denomination{Symbol: d.Symbol, Weight: w})
	}
	if err := rates.Validate(); err != nil {
		return service.Settings{}, err
	}
	return service.Settings{
		Rates:             rates,
		RemoveEmptyStacks: e.RemoveEmptyStacks,
		BuyChat:           e.BuyChat,
	}, nil
}

// LoadSeed reads the parties a fresh store starts with.
func LoadSeed(path string) ([]domain.Party, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parties []domain.Party
	if err := json.Unmarshal(b, &parties); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	for i, p := range parties {
		if p.ID == "" {
			return nil, fmt.Errorf("seed %s: party %d has no id", path, i)
		}
	}
	return parties, nil
}
