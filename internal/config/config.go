package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by FromEnv
const (
	// EnvUsername is the clist.by account name used for API key authentication
	EnvUsername = "CLIST_USERNAME"

	// EnvAPIKey is the clist.by API key belonging to EnvUsername
	EnvAPIKey = "CLIST_API_KEY"

	// EnvBaseURL overrides the clist.by API root (mostly useful for tests and proxies)
	EnvBaseURL = "CLIST_BASE_URL"

	// EnvTelegramToken enables forwarding listings to a Telegram chat
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"

	// EnvTelegramChatID is the chat that receives forwarded listings
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"

	// EnvTelegramAPIEndpoint points the Telegram sink at a self-hosted Bot API server,
	// as a format string taking the token and method (e.g. "http://localhost:8081/bot%s/%s")
	EnvTelegramAPIEndpoint = "TELEGRAM_API_ENDPOINT"

	// EnvRemindBefore sends a Telegram reminder this long before each contest starts (e.g. "30m")
	EnvRemindBefore = "REMIND_BEFORE"

	// EnvLogLevel selects the minimum log level (debug, info, warn, error)
	EnvLogLevel = "LOG_LEVEL"
)

// DefaultBaseURL is the root of the clist.by v2 REST API
const DefaultBaseURL = "https://clist.by/api/v2/"

// ErrMissingCredentials is returned when the clist.by username or API key is not configured
var ErrMissingCredentials = errors.New("missing clist credentials")

// Config represents the application configuration
type Config struct {
	// Username is the clist.by account name
	Username string `json:"username" validate:"required"`

	// APIKey is the clist.by API key
	APIKey string `json:"-" validate:"required"`

	// BaseURL is the API root, always ending with a slash
	BaseURL string `json:"baseURL" validate:"required"`

	// Resources are the platform names to list contests for, in display order
	Resources []string `json:"resources" validate:"required,min=1"`

	// PageLimit caps the number of objects requested from each endpoint
	PageLimit int `json:"pageLimit" validate:"required,min=1"`

	// HTTPTimeout bounds every request made to the API
	HTTPTimeout time.Duration `json:"httpTimeout" validate:"required"`

	// WatchInterval repeats the listing on this interval (zero means list once and exit)
	WatchInterval time.Duration `json:"watchInterval"`

	// RemindBefore is how long before its start a contest gets a reminder (zero disables reminders)
	RemindBefore time.Duration `json:"remindBefore"`

	// TelegramToken and TelegramChatID enable the Telegram sink when both are set
	TelegramToken  string `json:"-"`
	TelegramChatID int64  `json:"telegramChatID"`

	// TelegramAPIEndpoint overrides the Bot API endpoint format (empty means api.telegram.org)
	TelegramAPIEndpoint string `json:"telegramAPIEndpoint"`

	// LogLevel is the minimum level written to the terminal
	LogLevel string `json:"logLevel"`
}

// DefaultResources returns the platforms listed when none are configured
func DefaultResources() []string {
	return []string{"codechef.com", "leetcode.com", "codeforces.com"}
}

// DefaultConfig returns a default configuration without credentials
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		Resources:     DefaultResources(),
		PageLimit:     10,
		HTTPTimeout:   30 * time.Second,
		WatchInterval: 0, // Single listing
		LogLevel:      "info",
	}
}

// FromEnv builds a configuration from the defaults overlaid with environment values.
// The returned configuration has already been validated.
func FromEnv(getenv func(key string) string) (*Config, error) {
	cfg := DefaultConfig()

	cfg.Username = strings.TrimSpace(getenv(EnvUsername))
	cfg.APIKey = strings.TrimSpace(getenv(EnvAPIKey))

	if baseURL := strings.TrimSpace(getenv(EnvBaseURL)); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if level := strings.TrimSpace(getenv(EnvLogLevel)); level != "" {
		cfg.LogLevel = level
	}
	if raw := strings.TrimSpace(getenv(EnvRemindBefore)); raw != "" {
		remindBefore, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvRemindBefore, raw, err)
		}
		cfg.RemindBefore = remindBefore
	}

	cfg.TelegramToken = strings.TrimSpace(getenv(EnvTelegramToken))
	cfg.TelegramAPIEndpoint = strings.TrimSpace(getenv(EnvTelegramAPIEndpoint))
	if raw := strings.TrimSpace(getenv(EnvTelegramChatID)); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvTelegramChatID, raw, err)
		}
		cfg.TelegramChatID = chatID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to query the API
func (c *Config) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base URL is empty")
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf("at least one resource is required")
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("page limit must be positive, got %d", c.PageLimit)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.WatchInterval < 0 {
		return fmt.Errorf("watch interval must not be negative, got %s", c.WatchInterval)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("%s and %s must be set together", EnvTelegramToken, EnvTelegramChatID)
	}
	if c.RemindBefore < 0 {
		return fmt.Errorf("remind before must not be negative, got %s", c.RemindBefore)
	}
	if c.RemindBefore > 0 && !c.TelegramEnabled() {
		return fmt.Errorf("reminders require %s and %s", EnvTelegramToken, EnvTelegramChatID)
	}
	return nil
}

// TelegramEnabled reports whether listings should also be sent to Telegram
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// ParseResources splits a comma-separated list of platform names, dropping blanks
func ParseResources(raw string) []string {
	resources := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		resources = append(resources, part)
	}
	return resources
}
