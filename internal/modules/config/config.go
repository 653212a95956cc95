package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"orb_bot/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	bridgeHostENV     = "BRIDGE_HOST"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`

	// Мост к TWS: HTTP — handshake/ордера, WS — пуш-стрим тиков.
	Bridge struct {
		Host     string `yaml:"host"`
		HTTPPort int    `yaml:"http_port"`
		WSPort   int    `yaml:"ws_port"`
		ClientID int    `yaml:"client_id"`
	} `yaml:"bridge"`

	Session struct {
		// Начало окна, часы:минуты UTC, напр. "13:30" (открытие NYSE).
		WindowStart string `yaml:"window_start"`
		// Длина окна в минутах; исторические семейства: 1, 3, 5, 15.
		WindowMinutes int `yaml:"window_minutes"`
		// 0.05 => тейк +5% от уровня входа.
		TargetPct float64 `yaml:"target_pct"`
		// 0.05 => стоп -5% от уровня входа.
		StopPct float64 `yaml:"stop_pct"`
		// Буфер канала наблюдений между шлюзом и движком.
		QueueSize int `yaml:"queue_size"`

		Instruments []models.InstrumentConfig `yaml:"instruments"`
	} `yaml:"session"`

	// Watchlist из CSV премаркет-гейнеров (выхлоп скрейпера).
	Watchlist struct {
		CSV             string  `yaml:"csv"`
		MinChange       float64 `yaml:"min_change"`       // 0.25 => фильтр >25%
		DefaultPosition float64 `yaml:"default_position"` // аллокация, если нет в instruments
	} `yaml:"watchlist"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{}
	config.Bridge.Host = "127.0.0.1"
	config.Bridge.HTTPPort = 7497
	config.Bridge.WSPort = 7498
	config.Bridge.ClientID = 1
	config.Session.WindowStart = "13:30"
	config.Session.WindowMinutes = intFromEnv("WINDOW_MINUTES", 5)
	config.Session.TargetPct = floatFromEnv("TARGET_PCT", 0.05)
	config.Session.StopPct = floatFromEnv("STOP_PCT", 0.05)
	config.Session.QueueSize = intFromEnv("OBS_QUEUE_SIZE", 4096)
	config.Watchlist.MinChange = floatFromEnv("WATCHLIST_MIN_CHANGE", 0.25)
	config.Watchlist.DefaultPosition = floatFromEnv("WATCHLIST_DEFAULT_POSITION", 500)
	config.Metrics.Addr = getenvDefault("METRICS_ADDR", ":8090")
	config.Health.Addr = getenvDefault("HEALTH_ADDR", ":8080")

	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	host := os.Getenv(bridgeHostENV)
	if host != "" {
		config.Bridge.Host = host
	}

	return &config, nil
}

// SessionWindow якорит "13:30" к дате now (UTC) и возвращает границы окна.
// Принимает и полный RFC3339 — удобно для прогонов по записи.
func (c *Config) SessionWindow(now time.Time) (time.Time, time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, c.Session.WindowStart); err == nil {
		return ts, ts.Add(time.Duration(c.Session.WindowMinutes) * time.Minute), nil
	}

	clock, err := time.Parse("15:04", c.Session.WindowStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad window_start %q: %w", c.Session.WindowStart, err)
	}

	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return start, start.Add(time.Duration(c.Session.WindowMinutes) * time.Minute), nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
