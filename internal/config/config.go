// Package config reads runtime settings from the environment. An optional
// .env file is loaded first; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL        = "https://builder.empromptu.ai/api_tools"
	DefaultListenAddr     = ":8080"
	DefaultLogLevel       = "info"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultMaxInputLength = 5000
)

type Config struct {
	BaseURL  string
	Token    string
	AppID    string
	UsageKey string

	// ParamPrefix switches credential loading to SSM Parameter Store.
	ParamPrefix string

	HTTPTimeout    time.Duration
	ListenAddr     string
	LogLevel       string
	MaxInputLength int
}

// UseParamStore reports whether credentials come from SSM.
func (c Config) UseParamStore() bool {
	return c.ParamPrefix != ""
}

// Validate checks that credentials are available from one source.
func (c Config) Validate() error {
	if c.UseParamStore() {
		return nil
	}
	var missing []string
	if c.Token == "" {
		missing = append(missing, "PROMPT_TOOLS_TOKEN")
	}
	if c.AppID == "" {
		missing = append(missing, "PROMPT_TOOLS_APP_ID")
	}
	if c.UsageKey == "" {
		missing = append(missing, "PROMPT_TOOLS_USAGE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: set PARAM_PREFIX or %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load reads the environment, after loading envFiles (default ".env") when
// they exist.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	timeout, err := envInt("HTTP_TIMEOUT_SECONDS", int(DefaultHTTPTimeout/time.Second))
	if err != nil {
		return Config{}, err
	}
	maxInput, err := envInt("MAX_INPUT_LENGTH", DefaultMaxInputLength)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseURL:        getEnv("PROMPT_TOOLS_BASE_URL", DefaultBaseURL),
		Token:          getEnv("PROMPT_TOOLS_TOKEN", ""),
		AppID:          getEnv("PROMPT_TOOLS_APP_ID", ""),
		UsageKey:       getEnv("PROMPT_TOOLS_USAGE_KEY", ""),
		ParamPrefix:    strings.TrimRight(getEnv("PARAM_PREFIX", ""), "/"),
		HTTPTimeout:    time.Duration(timeout) * time.Second,
		ListenAddr:     getEnv("LISTEN_ADDR", DefaultListenAddr),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		MaxInputLength: maxInput,
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
