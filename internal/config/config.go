package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Clear modes for the per-record fallback sync.
const (
	ClearPrune  = "prune"
	ClearBefore = "before"
	ClearOff    = "off"
)

// Selectors locates the pieces of a property card in a rendered results page.
type Selectors struct {
	Card      string `yaml:"card"`
	Title     string `yaml:"title"`
	Price     string `yaml:"price"`
	Stars     string `yaml:"stars"`
	StarsAttr string `yaml:"stars_attr"`
}

// Collector configures the daily results-page collection.
type Collector struct {
	Locality    string            `yaml:"locality"`
	WindowDays  int               `yaml:"window_days"`
	BaseURL     string            `yaml:"base_url"`
	WaitTimeout time.Duration     `yaml:"wait_timeout"`
	DayDelay    time.Duration     `yaml:"day_delay"`
	UserAgent   string            `yaml:"user_agent"`
	Headless    *bool             `yaml:"headless"`
	Adults      int               `yaml:"adults"`
	Rooms       int               `yaml:"rooms"`
	Children    int               `yaml:"children"`
	ExtraParams map[string]string `yaml:"extra_params"`
	Selectors   Selectors         `yaml:"selectors"`
}

// IsHeadless reports whether the browser should run without a window. Defaults to true.
func (c Collector) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// Publisher configures the snapshot file and the remote sync.
type Publisher struct {
	SnapshotPath string        `yaml:"snapshot_path"`
	RecordDelay  time.Duration `yaml:"record_delay"`
	ClearMode    string        `yaml:"clear_mode"`
}

// Supabase configures the remote store.
type Supabase struct {
	URL     string        `yaml:"url"`
	AnonKey string        `yaml:"anon_key"`
	RPC     string        `yaml:"rpc"`
	Table   string        `yaml:"table"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether enough is configured to talk to the remote store.
func (s Supabase) Enabled() bool {
	return s.URL != "" && s.AnonKey != ""
}

// Config holds all application configuration.
type Config struct {
	OwnerID   string    `yaml:"owner_id"`
	Collector Collector `yaml:"collector"`
	Publisher Publisher `yaml:"publisher"`
	Supabase  Supabase  `yaml:"supabase"`
	Database  struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr         string   `yaml:"addr"`
		CORSOrigins  []string `yaml:"cors_origins"`
		ScheduleCron string   `yaml:"schedule_cron"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	LogLevel string `yaml:"log_level"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OWNER_ID"); v != "" {
		c.OwnerID = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Supabase.URL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		c.Supabase.AnonKey = v
	}
	if v := os.Getenv("SCRAPE_LOCALITY"); v != "" {
		c.Collector.Locality = v
	}
	if v := os.Getenv("WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Collector.WindowDays = n
		}
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		c.Publisher.SnapshotPath = v
	}
	if v := os.Getenv("FALLBACK_CLEAR_MODE"); v != "" {
		c.Publisher.ClearMode = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SCHEDULE_CRON"); v != "" {
		c.Server.ScheduleCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	col := &c.Collector
	if col.Locality == "" {
		col.Locality = "Tijuana"
	}
	if col.WindowDays == 0 {
		col.WindowDays = 15
	}
	if col.BaseURL == "" {
		col.BaseURL = "https://www.booking.com/searchresults.es.html"
	}
	if col.WaitTimeout == 0 {
		col.WaitTimeout = 20 * time.Second
	}
	if col.DayDelay == 0 {
		col.DayDelay = 2500 * time.Millisecond
	}
	if col.UserAgent == "" {
		col.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if col.Adults == 0 {
		col.Adults = 1
	}
	if col.Rooms == 0 {
		col.Rooms = 1
	}
	if col.ExtraParams == nil {
		col.ExtraParams = map[string]string{"ht_id": "204"}
	}
	sel := &col.Selectors
	if sel.Card == "" {
		sel.Card = `div[data-testid='property-card']`
	}
	if sel.Title == "" {
		sel.Title = `div[data-testid='title']`
	}
	if sel.Price == "" {
		sel.Price = `span[data-testid='price-and-discounted-price']`
	}
	if sel.Stars == "" {
		sel.Stars = "div.ebc566407a"
	}
	if sel.StarsAttr == "" {
		sel.StarsAttr = "aria-label"
	}

	if c.Publisher.SnapshotPath == "" {
		c.Publisher.SnapshotPath = "resultados/hoteles_tijuana_promedios.json"
	}
	if c.Publisher.RecordDelay == 0 {
		c.Publisher.RecordDelay = 50 * time.Millisecond
	}
	if c.Publisher.ClearMode == "" {
		c.Publisher.ClearMode = ClearPrune
	}

	if c.Supabase.RPC == "" {
		c.Supabase.RPC = "refresh_hotels"
	}
	if c.Supabase.Table == "" {
		c.Supabase.Table = "hotels"
	}
	if c.Supabase.Timeout == 0 {
		c.Supabase.Timeout = 30 * time.Second
	}

	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stay_sentinel.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configured values are usable. The owner is not checked
// here because it may be supplied per run.
func (c *Config) Validate() error {
	if c.Collector.WindowDays <= 0 {
		return fmt.Errorf("collector.window_days must be positive")
	}
	if c.Collector.WaitTimeout <= 0 {
		return fmt.Errorf("collector.wait_timeout must be positive")
	}
	if c.Collector.DayDelay < 0 {
		return fmt.Errorf("collector.day_delay must not be negative")
	}
	sel := c.Collector.Selectors
	if sel.Card == "" || sel.Title == "" || sel.Price == "" {
		return fmt.Errorf("collector.selectors card, title and price are required")
	}
	if c.Publisher.SnapshotPath == "" {
		return fmt.Errorf("publisher.snapshot_path is required")
	}
	if c.Publisher.RecordDelay < 0 {
		return fmt.Errorf("publisher.record_delay must not be negative")
	}
	switch c.Publisher.ClearMode {
	case ClearPrune, ClearBefore, ClearOff:
	default:
		return fmt.Errorf("publisher.clear_mode %q is not one of prune, before, off", c.Publisher.ClearMode)
	}
	if (c.Supabase.URL == "") != (c.Supabase.AnonKey == "") {
		return fmt.Errorf("supabase.url and supabase.anon_key must be set together")
	}
	return nil
}
