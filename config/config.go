// Package config holds process-wide defaults for termagent: completion
// endpoint settings, context window management, tool execution limits and
// filesystem locations. Values are resolved from the environment once via
// FromEnv; individual components still accept overrides through their own
// functional options.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Completion endpoint defaults. The OpenAI-compatible base URL points at
// xAI; any compatible endpoint works.
const (
	DefaultModel   = "grok-4-1-fast-reasoning"
	DefaultBaseURL = "https://api.x.ai/v1"
)

// Context window management. Token estimates are a fixed heuristic of one
// token per TokenEstimateChars bytes of content, not exact tokenization.
const (
	MaxContextTokens   = 128_000
	TokenEstimateChars = 4
)

// Tool execution limits.
const (
	ToolTimeout            = 30 * time.Second
	ToolRateLimitPerMinute = 60
	MaxFileSizeBytes       = 1 << 20  // 1MB default read cap
	MaxBashOutputBytes     = 10 << 20 // 10MB max captured output
)

// HighRiskCommands are substrings that gate bash execution behind an
// explicit confirmation parameter.
var HighRiskCommands = []string{
	"rm -rf",
	"sudo",
	"chmod 777",
	"dd if=",
	"mkfs",
	"fdisk",
	"format",
	"> /dev/",
}

// IsHighRiskCommand reports whether a shell command matches the high-risk
// substring list.
func IsHighRiskCommand(command string) bool {
	lower := strings.ToLower(strings.TrimSpace(command))
	for _, risk := range HighRiskCommands {
		if strings.Contains(lower, risk) {
			return true
		}
	}
	return false
}

// Config captures the resolved runtime configuration.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	DBPath        string
	SandboxDir    string
	ContextBudget int
	ToolTimeout   time.Duration
	RatePerMinute int
}

// FromEnv resolves configuration from the environment, falling back to the
// package defaults. Recognized variables: XAI_API_KEY, TERMAGENT_MODEL,
// TERMAGENT_BASE_URL, TERMAGENT_DB, TERMAGENT_SANDBOX,
// TERMAGENT_CONTEXT_TOKENS.
func FromEnv() Config {
	home, _ := os.UserHomeDir()

	cfg := Config{
		APIKey:        os.Getenv("XAI_API_KEY"),
		Model:         DefaultModel,
		BaseURL:       DefaultBaseURL,
		DBPath:        filepath.Join(home, ".termagent", "termagent.db"),
		SandboxDir:    filepath.Join(home, ".termagent-sandbox"),
		ContextBudget: MaxContextTokens,
		ToolTimeout:   ToolTimeout,
		RatePerMinute: ToolRateLimitPerMinute,
	}

	if v := os.Getenv("TERMAGENT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("TERMAGENT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TERMAGENT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TERMAGENT_SANDBOX"); v != "" {
		cfg.SandboxDir = v
	}
	if v := os.Getenv("TERMAGENT_CONTEXT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ContextBudget = n
		}
	}

	return cfg
}
