package config

import (
	"testing"

	"faucet-agent/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBonusListDecode(t *testing.T) {
	var list BonusList

	require.NoError(t, list.Decode("btc:1000, wof:5"))
	assert.Equal(t, BonusList{
		{Category: entity.BonusBTC, Key: 1000},
		{Category: entity.BonusWOF, Key: 5},
	}, list)
}

func TestBonusListDecodeKeepsOrder(t *testing.T) {
	var list BonusList

	require.NoError(t, list.Decode("wof:5,lt:10,btc:100"))
	require.Len(t, list, 3)
	assert.Equal(t, entity.BonusWOF, list[0].Category)
	assert.Equal(t, entity.BonusLT, list[1].Category)
	assert.Equal(t, entity.BonusBTC, list[2].Category)
}

func TestBonusListDecodeEmpty(t *testing.T) {
	var list BonusList

	require.NoError(t, list.Decode("  "))
	assert.Empty(t, list)
}

func TestBonusListDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "no_separator", in: "btc1000"},
		{name: "unknown_category", in: "xyz:5"},
		{name: "duplicate_category", in: "btc:100,btc:1000"},
		{name: "negative_key", in: "btc:-1"},
		{name: "non_numeric_key", in: "btc:many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list BonusList
			assert.Error(t, list.Decode(tt.in))
		})
	}
}

func validConfig() *Config {
	return &Config{
		AppConfig: &AppConfig{LogLevel: "info"},
		BrowserConfig: &BrowserConfig{
			Name:            BrowserFirefox,
			DriverKind:      DriverKindSelenium,
			TimeoutPageLoad: 30,
			TimeoutElemWait: 10,
		},
		AuthConfig: &AuthConfig{},
		ScenarioConfig: &ScenarioConfig{
			FreePlayAttempts:       3,
			OnUnavailableTimeout:   300,
			OnUnavailableIncrease:  2,
			BonusesTimeoutElemWait: 5,
		},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "browser", mutate: func(c *Config) { c.BrowserConfig.Name = "safari" }},
		{name: "driver_kind", mutate: func(c *Config) { c.BrowserConfig.DriverKind = "puppeteer" }},
		{name: "page_load_timeout", mutate: func(c *Config) { c.BrowserConfig.TimeoutPageLoad = 0 }},
		{name: "elem_wait_timeout", mutate: func(c *Config) { c.BrowserConfig.TimeoutElemWait = -1 }},
		{name: "bonus_timeout", mutate: func(c *Config) { c.ScenarioConfig.BonusesTimeoutElemWait = 0 }},
		{name: "negative_rounds", mutate: func(c *Config) { c.ScenarioConfig.FreePlayNum = -1 }},
		{name: "negative_delay", mutate: func(c *Config) { c.ScenarioConfig.FreePlayAfterCountdownDelay = -1 }},
		{name: "unavailable_timeout", mutate: func(c *Config) { c.ScenarioConfig.OnUnavailableTimeout = 0 }},
		{name: "unavailable_increase", mutate: func(c *Config) { c.ScenarioConfig.OnUnavailableIncrease = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := validConfig()
			tt.mutate(conf)
			assert.Error(t, conf.Validate())
		})
	}
}
