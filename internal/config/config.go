package config

import (
	"fmt"
	"strconv"
	"strings"

	"faucet-agent/internal/entity"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverKindSelenium   = "selenium"
	DriverKindPlaywright = "playwright"

	BrowserFirefox = "firefox"
	BrowserChrome  = "chrome"
)

type Config struct {
	AppConfig      *AppConfig
	BrowserConfig  *BrowserConfig
	AuthConfig     *AuthConfig
	ScenarioConfig *ScenarioConfig
}

type AppConfig struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogToFile bool   `envconfig:"LOG_TO_FILE" default:"false"`
	LogFile   string `envconfig:"LOG_FILE" default:"logs/faucet.log"`
}

type BrowserConfig struct {
	Name             string  `envconfig:"BROWSER_NAME" default:"firefox"`
	DriverKind       string  `envconfig:"DRIVER_KIND" default:"selenium"`
	DriversDir       string  `envconfig:"DRIVERS_DIR" default:"drivers"`
	DriverLogFile    string  `envconfig:"DRIVER_LOG_FILE" default:"logs/driver.log"`
	DriverPort       int     `envconfig:"DRIVER_PORT" default:"4444"`
	DriverAutoUpdate bool    `envconfig:"DRIVER_AUTO_UPDATE" default:"true"`
	Headless         bool    `envconfig:"BROWSER_HEADLESS" default:"false"`
	TimeoutPageLoad  float64 `envconfig:"TIMEOUT_PAGE_LOAD" default:"30"`
	TimeoutElemWait  float64 `envconfig:"TIMEOUT_ELEM_WAIT" default:"10"`
}

type AuthConfig struct {
	Address    string `envconfig:"FBTC_ADDRESS" default:""`
	Password   string `envconfig:"FBTC_PASSWORD" default:""`
	TOTPSecret string `envconfig:"FBTC_TOTP_SECRET" default:""`
}

type ScenarioConfig struct {
	URL                           string    `envconfig:"FAUCET_URL" default:"https://freebitco.in"`
	CloseCookieWarningBanner      bool      `envconfig:"CLOSE_COOKIE_WARNING_BANNER" default:"true"`
	CloseNotificationModal        bool      `envconfig:"CLOSE_NOTIFICATION_MODAL" default:"true"`
	CloseAfterFreePlayModal       bool      `envconfig:"CLOSE_AFTER_FREE_PLAY_MODAL" default:"true"`
	SoundFreePlay                 bool      `envconfig:"SOUND_FREE_PLAY" default:"false"`
	PlayCompletionSound           bool      `envconfig:"PLAY_COMPLETION_SOUND" default:"false"`
	DisableLottery                bool      `envconfig:"DISABLE_LOTTERY" default:"true"`
	DisableInterest               bool      `envconfig:"DISABLE_INTEREST" default:"false"`
	CheckForCaptcha               bool      `envconfig:"CHECK_FOR_CAPTCHA" default:"true"`
	CheckForWinningWOF            bool      `envconfig:"CHECK_FOR_WINNING_WOF" default:"false"`
	FreePlayNum                   int       `envconfig:"FREE_PLAY_NUM" default:"0"`
	FreePlayAttempts              int       `envconfig:"FREE_PLAY_ATTEMPTS" default:"3"`
	FreePlayAfterCountdownDelay   float64   `envconfig:"FREE_PLAY_AFTER_COUNTDOWN_DELAY" default:"5"`
	FreePlayAfterCountdownRefresh bool      `envconfig:"FREE_PLAY_AFTER_COUNTDOWN_REFRESH" default:"false"`
	OnUnavailableAttempts         int       `envconfig:"ON_UNAVAILABLE_ATTEMPTS" default:"5"`
	OnUnavailableTimeout          float64   `envconfig:"ON_UNAVAILABLE_ATTEMPTS_TIMEOUT" default:"300"`
	OnUnavailableIncrease         float64   `envconfig:"ON_UNAVAILABLE_ATTEMPTS_TIMEOUT_INCREASE" default:"2"`
	Bonuses                       BonusList `envconfig:"BONUSES" default:"btc:1000,wof:5"`
	BonusesTimeoutElemWait        float64   `envconfig:"BONUSES_TIMEOUT_ELEM_WAIT" default:"5"`
}

// BonusList is an ordered list of bonus activation requests. Order in the
// environment value is activation order.
type BonusList []entity.BonusRequest

// Decode implements envconfig.Decoder for values like "btc:1000,wof:5".
func (b *BonusList) Decode(value string) error {
	*b = nil

	if strings.TrimSpace(value) == "" {
		return nil
	}

	seen := make(map[entity.BonusCategory]bool)

	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("bonus entry %q is not of the form category:key", pair)
		}

		category := entity.BonusCategory(strings.ToLower(strings.TrimSpace(parts[0])))
		if !category.Valid() {
			return fmt.Errorf("unknown bonus category %q", parts[0])
		}

		if seen[category] {
			return fmt.Errorf("bonus category %q listed twice", category)
		}
		seen[category] = true

		key, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || key < 0 {
			return fmt.Errorf("bonus key %q is not a non-negative integer", parts[1])
		}

		*b = append(*b, entity.BonusRequest{Category: category, Key: key})
	}

	return nil
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

// Validate fails fast on malformed option values, before any browser
// interaction happens.
func (c *Config) Validate() error {
	switch c.BrowserConfig.Name {
	case BrowserFirefox, BrowserChrome:
	default:
		return fmt.Errorf("BROWSER_NAME %q is not supported", c.BrowserConfig.Name)
	}

	switch c.BrowserConfig.DriverKind {
	case DriverKindSelenium, DriverKindPlaywright:
	default:
		return fmt.Errorf("DRIVER_KIND %q is not supported", c.BrowserConfig.DriverKind)
	}

	if c.BrowserConfig.TimeoutPageLoad <= 0 {
		return fmt.Errorf("TIMEOUT_PAGE_LOAD must be positive")
	}

	if c.BrowserConfig.TimeoutElemWait <= 0 {
		return fmt.Errorf("TIMEOUT_ELEM_WAIT must be positive")
	}

	if c.ScenarioConfig.BonusesTimeoutElemWait <= 0 {
		return fmt.Errorf("BONUSES_TIMEOUT_ELEM_WAIT must be positive")
	}

	if c.ScenarioConfig.FreePlayNum < 0 || c.ScenarioConfig.FreePlayAttempts < 0 {
		return fmt.Errorf("FREE_PLAY_NUM and FREE_PLAY_ATTEMPTS must not be negative")
	}

	if c.ScenarioConfig.FreePlayAfterCountdownDelay < 0 {
		return fmt.Errorf("FREE_PLAY_AFTER_COUNTDOWN_DELAY must not be negative")
	}

	if c.ScenarioConfig.OnUnavailableAttempts < 0 {
		return fmt.Errorf("ON_UNAVAILABLE_ATTEMPTS must not be negative")
	}

	if c.ScenarioConfig.OnUnavailableTimeout <= 0 {
		return fmt.Errorf("ON_UNAVAILABLE_ATTEMPTS_TIMEOUT must be positive")
	}

	if c.ScenarioConfig.OnUnavailableIncrease < 1 {
		return fmt.Errorf("ON_UNAVAILABLE_ATTEMPTS_TIMEOUT_INCREASE must be at least 1")
	}

	return nil
}
