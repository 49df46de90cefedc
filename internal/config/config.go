// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Graph() GraphConfig
	Collector() CollectorConfig
	Automation() AutomationConfig
	Cancel() CancelConfig
	Store() StoreConfig
	Report() ReportConfig

	// Collector Setters
	SetCollectorMaxItems(int)
	SetCollectorPageDelay(d time.Duration)

	// Automation Setters
	SetAutomationMaxActions(int)
	SetAutomationKeywords([]string)
	SetAutomationUseKeywordFilter(bool)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserRemoteURL(string)

	// Report Setter
	SetReportConfig(rc ReportConfig)
}

// Config holds the entire application configuration. Access normally goes
// through the Interface getters so components can be handed a narrow view.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	GraphCfg      GraphConfig      `mapstructure:"graph" yaml:"graph"`
	CollectorCfg  CollectorConfig  `mapstructure:"collector" yaml:"collector"`
	AutomationCfg AutomationConfig `mapstructure:"automation" yaml:"automation"`
	CancelCfg     CancelConfig     `mapstructure:"cancel" yaml:"cancel"`
	StoreCfg      StoreConfig      `mapstructure:"store" yaml:"store"`
	// report gets its marching orders from CLI flags, not the config file.
	report ReportConfig `mapstructure:"-" yaml:"-"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Graph() GraphConfig           { return c.GraphCfg }
func (c *Config) Collector() CollectorConfig   { return c.CollectorCfg }
func (c *Config) Automation() AutomationConfig { return c.AutomationCfg }
func (c *Config) Cancel() CancelConfig         { return c.CancelCfg }
func (c *Config) Store() StoreConfig           { return c.StoreCfg }
func (c *Config) Report() ReportConfig         { return c.report }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetCollectorMaxItems(n int)            { c.CollectorCfg.MaxItems = n }
func (c *Config) SetCollectorPageDelay(d time.Duration) { c.CollectorCfg.PageDelay = d }
func (c *Config) SetAutomationMaxActions(n int)         { c.AutomationCfg.MaxActions = n }
func (c *Config) SetAutomationKeywords(kw []string)     { c.AutomationCfg.Keywords = kw }
func (c *Config) SetAutomationUseKeywordFilter(b bool)  { c.AutomationCfg.UseKeywordFilter = b }
func (c *Config) SetBrowserHeadless(b bool)             { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserRemoteURL(u string)          { c.BrowserCfg.RemoteURL = u }
func (c *Config) SetReportConfig(rc ReportConfig)       { c.report = rc }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the attached browser session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	RemoteURL         string        `mapstructure:"remote_url" yaml:"remote_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// GraphConfig tunes the GraphQL API clients.
type GraphConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryCount     int           `mapstructure:"retry_count" yaml:"retry_count"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	FriendPageSize int           `mapstructure:"friend_page_size" yaml:"friend_page_size"`
	ParseDepth     int           `mapstructure:"parse_depth" yaml:"parse_depth"`
}

// CollectorConfig tunes the shared pagination engine.
type CollectorConfig struct {
	MaxItems  int           `mapstructure:"max_items" yaml:"max_items"`
	PageDelay time.Duration `mapstructure:"page_delay" yaml:"page_delay"`
	MaxPages  int           `mapstructure:"max_pages" yaml:"max_pages"`
}

// AutomationConfig tunes the friend-request automation loop.
type AutomationConfig struct {
	MaxActions       int           `mapstructure:"max_actions" yaml:"max_actions"`
	Keywords         []string      `mapstructure:"keywords" yaml:"keywords"`
	UseKeywordFilter bool          `mapstructure:"use_keyword_filter" yaml:"use_keyword_filter"`
	Disqualifiers    []string      `mapstructure:"disqualifiers" yaml:"disqualifiers"`
	ActionDelay      time.Duration `mapstructure:"action_delay" yaml:"action_delay"`
	ScrollSettle     time.Duration `mapstructure:"scroll_settle" yaml:"scroll_settle"`
	MaxScrollRounds  int           `mapstructure:"max_scroll_rounds" yaml:"max_scroll_rounds"`
}

// CancelConfig tunes the pending-request cancellation flow.
type CancelConfig struct {
	ItemDelay    time.Duration `mapstructure:"item_delay" yaml:"item_delay"`
	ScrollSettle time.Duration `mapstructure:"scroll_settle" yaml:"scroll_settle"`
	MaxScrolls   int           `mapstructure:"max_scrolls" yaml:"max_scrolls"`
}

// StoreConfig holds the local persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ReportConfig holds settings populated from CLI flags for a specific run.
type ReportConfig struct {
	Output string
	Format string
	RunID  string
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "socialgraph")
	v.SetDefault("logger.log_file", "socialgraph.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.post_load_wait", "2s")

	// -- Graph --
	v.SetDefault("graph.base_url", "https://www.facebook.com")
	v.SetDefault("graph.timeout", "30s")
	v.SetDefault("graph.retry_count", 2)
	v.SetDefault("graph.requests_per_sec", 1.0)
	v.SetDefault("graph.friend_page_size", 8)
	v.SetDefault("graph.parse_depth", 4)

	// -- Collector --
	v.SetDefault("collector.max_items", 0)
	v.SetDefault("collector.page_delay", "1s")
	v.SetDefault("collector.max_pages", 0)

	// -- Automation --
	v.SetDefault("automation.max_actions", 25)
	v.SetDefault("automation.use_keyword_filter", false)
	v.SetDefault("automation.disqualifiers", []string{
		"already friends",
		"friends since",
		"following",
		"follows you",
		"friend request sent",
		"pending",
	})
	v.SetDefault("automation.action_delay", "2s")
	v.SetDefault("automation.scroll_settle", "1500ms")
	v.SetDefault("automation.max_scroll_rounds", 10)

	// -- Cancel --
	v.SetDefault("cancel.item_delay", "1500ms")
	v.SetDefault("cancel.scroll_settle", "1s")
	v.SetDefault("cancel.max_scrolls", 50)

	// -- Store --
	v.SetDefault("store.path", "socialgraph.db")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.GraphCfg.BaseURL == "" {
		return fmt.Errorf("graph.base_url is a required configuration field")
	}
	if !strings.HasPrefix(c.GraphCfg.BaseURL, "http://") && !strings.HasPrefix(c.GraphCfg.BaseURL, "https://") {
		return fmt.Errorf("graph.base_url must be an absolute http(s) URL")
	}
	if c.GraphCfg.FriendPageSize <= 0 {
		return fmt.Errorf("graph.friend_page_size must be a positive integer")
	}
	if c.GraphCfg.ParseDepth <= 0 {
		return fmt.Errorf("graph.parse_depth must be a positive integer")
	}
	if c.CollectorCfg.MaxItems < 0 {
		return fmt.Errorf("collector.max_items cannot be negative")
	}
	if c.CollectorCfg.PageDelay < 0 {
		return fmt.Errorf("collector.page_delay cannot be negative")
	}
	if err := c.AutomationCfg.Validate(); err != nil {
		return fmt.Errorf("automation configuration invalid: %w", err)
	}
	if err := c.CancelCfg.Validate(); err != nil {
		return fmt.Errorf("cancel configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the automation settings.
func (a *AutomationConfig) Validate() error {
	if a.MaxActions < 0 {
		return fmt.Errorf("max_actions cannot be negative")
	}
	if a.MaxScrollRounds <= 0 {
		return fmt.Errorf("max_scroll_rounds must be greater than 0")
	}
	return nil
}

// Validate checks the cancellation settings.
func (c *CancelConfig) Validate() error {
	if c.MaxScrolls <= 0 {
		return fmt.Errorf("max_scrolls must be greater than 0")
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("item_delay cannot be negative")
	}
	return nil
}
