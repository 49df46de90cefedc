// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "socialgraph", cfg.Logger().ServiceName)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, 90*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, "https://www.facebook.com", cfg.Graph().BaseURL)
	assert.Equal(t, 8, cfg.Graph().FriendPageSize)
	assert.Equal(t, 4, cfg.Graph().ParseDepth)
	assert.Equal(t, 0, cfg.Collector().MaxItems, "unlimited by default")
	assert.Equal(t, time.Second, cfg.Collector().PageDelay)
	assert.False(t, cfg.Automation().UseKeywordFilter)
	assert.Contains(t, cfg.Automation().Disqualifiers, "already friends")
	assert.Equal(t, 1500*time.Millisecond, cfg.Cancel().ItemDelay)
	assert.Equal(t, "socialgraph.db", cfg.Store().Path)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		err := cfg.Validate()
		assert.NoError(t, err, "A valid config should not produce a validation error")

		cfgNoBase := *cfg
		cfgNoBase.GraphCfg.BaseURL = ""
		err = cfgNoBase.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "graph.base_url is a required configuration field")

		cfgBadBase := *cfg
		cfgBadBase.GraphCfg.BaseURL = "www.facebook.com"
		err = cfgBadBase.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "absolute http(s) URL")

		cfgBadPage := *cfg
		cfgBadPage.GraphCfg.FriendPageSize = 0
		err = cfgBadPage.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "graph.friend_page_size must be a positive integer")

		cfgBadTrim := *cfg
		cfgBadTrim.CollectorCfg.MaxItems = -1
		err = cfgBadTrim.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "collector.max_items cannot be negative")
	})

	t.Run("Automation Validation", func(t *testing.T) {
		valid := AutomationConfig{MaxActions: 10, MaxScrollRounds: 5}
		assert.NoError(t, valid.Validate())

		negActions := valid
		negActions.MaxActions = -1
		err := negActions.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_actions cannot be negative")

		noRounds := valid
		noRounds.MaxScrollRounds = 0
		err = noRounds.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_scroll_rounds must be greater than 0")
	})

	t.Run("Cancel Validation", func(t *testing.T) {
		valid := CancelConfig{ItemDelay: time.Second, MaxScrolls: 20}
		assert.NoError(t, valid.Validate())

		noScrolls := valid
		noScrolls.MaxScrolls = 0
		err := noScrolls.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_scrolls must be greater than 0")

		negDelay := valid
		negDelay.ItemDelay = -time.Second
		err = negDelay.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "item_delay cannot be negative")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
logger:
  level: debug
  format: json
graph:
  base_url: https://test.internal
  friend_page_size: 4
collector:
  max_items: 100
  page_delay: 250ms
automation:
  max_actions: 3
  use_keyword_filter: true
  keywords: ["engineer", "golang"]
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "json", cfg.Logger().Format)
	assert.Equal(t, "https://test.internal", cfg.Graph().BaseURL)
	assert.Equal(t, 4, cfg.Graph().FriendPageSize)
	assert.Equal(t, 100, cfg.Collector().MaxItems)
	assert.Equal(t, 250*time.Millisecond, cfg.Collector().PageDelay)
	assert.Equal(t, 3, cfg.Automation().MaxActions)
	assert.True(t, cfg.Automation().UseKeywordFilter)
	assert.Equal(t, []string{"engineer", "golang"}, cfg.Automation().Keywords)

	// Defaults not overridden by the file survive.
	assert.Equal(t, 4, cfg.Graph().ParseDepth)
	assert.Contains(t, cfg.Automation().Disqualifiers, "pending")
}

func TestNewConfigFromViperInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("graph.base_url", "")

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.SetCollectorMaxItems(10)
	cfg.SetCollectorPageDelay(50 * time.Millisecond)
	cfg.SetAutomationMaxActions(7)
	cfg.SetAutomationKeywords([]string{"sre"})
	cfg.SetAutomationUseKeywordFilter(true)
	cfg.SetBrowserHeadless(true)
	cfg.SetBrowserRemoteURL("ws://127.0.0.1:9222")
	cfg.SetReportConfig(ReportConfig{Output: "out.json", Format: "json"})

	assert.Equal(t, 10, cfg.Collector().MaxItems)
	assert.Equal(t, 50*time.Millisecond, cfg.Collector().PageDelay)
	assert.Equal(t, 7, cfg.Automation().MaxActions)
	assert.Equal(t, []string{"sre"}, cfg.Automation().Keywords)
	assert.True(t, cfg.Automation().UseKeywordFilter)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser().RemoteURL)
	assert.Equal(t, "out.json", cfg.Report().Output)
}
