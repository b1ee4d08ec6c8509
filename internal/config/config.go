package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the root configuration for the triage assistant.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Telegram  TelegramConfig            `json:"telegram"`
	Providers map[string]ProviderConfig `json:"providers"`
	Triage    TriageConfig              `json:"triage"`
	Knowledge KnowledgeConfig           `json:"knowledge"`
	Audit     AuditConfig               `json:"audit"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel            string `json:"logLevel"`
	LogFile             string `json:"logFile,omitempty"`
	DefaultProvider     string `json:"defaultProvider"`
	MaxConcurrentEvents int    `json:"maxConcurrentEvents"`
}

// TelegramConfig configures the transport. Mode selects long polling or a
// webhook HTTP server.
type TelegramConfig struct {
	Token   string        `json:"token"`
	Mode    string        `json:"mode"` // "poll" | "webhook"
	Webhook WebhookConfig `json:"webhook"`
}

type WebhookConfig struct {
	Domain     string `json:"domain"`
	Path       string `json:"path"`
	ListenAddr string `json:"listenAddr"`
}

type ProviderConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

// TriageConfig holds the authorization surface and pipeline knobs.
type TriageConfig struct {
	Operators              FlexInt64List `json:"operators"`
	ModerationChatID       FlexInt64     `json:"moderationChatId,omitempty"`
	ChatAllowlist          FlexInt64List `json:"chatAllowlist,omitempty"`
	ReplyOnCannotAnswer    bool          `json:"replyOnCannotAnswer"`
	DownvoteEmoji          string        `json:"downvoteEmoji,omitempty"`
	ClassifyTimeoutSeconds int           `json:"classifyTimeoutSeconds,omitempty"`
	MaxAnswerTokens        int           `json:"maxAnswerTokens,omitempty"`
	Temperature            float64       `json:"temperature,omitempty"`
}

type KnowledgeConfig struct {
	Path string `json:"path"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listenAddr,omitempty"`
}

// FlexInt64 is an int64 that can unmarshal from both a JSON number and a
// quoted string (chat ids are often pasted around as strings).
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	*f = FlexInt64(n)
	return nil
}

// FlexInt64List is a []int64 that can unmarshal from JSON arrays containing
// both numbers and strings, or from a single comma-separated string
// (matching the OPERATOR_IDS=1,2,3 environment convention).
type FlexInt64List []int64

func (f *FlexInt64List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		out := make([]int64, 0, len(raw))
		for _, item := range raw {
			var v FlexInt64
			if err := v.UnmarshalJSON(item); err != nil {
				return err
			}
			out = append(out, int64(v))
		}
		*f = out
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*f = nil
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id list entry %q: %w", part, err)
		}
		out = append(out, n)
	}
	*f = out
	return nil
}

// DefaultConfigDir returns the default config directory (~/.triagebot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".triagebot"
	}
	return filepath.Join(home, ".triagebot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, env-expands, parses, and validates the config file. A .env file
// in the working directory is folded into the environment first, so ${VAR}
// references resolve against it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Knowledge.Path = ExpandPath(cfg.Knowledge.Path)
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values. A missing credential is
// fatal here: the process must refuse to serve traffic on a broken config.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	switch cfg.Telegram.Mode {
	case "", "poll", "webhook":
	default:
		errs = append(errs, "telegram.mode must be one of: poll, webhook")
	}
	if cfg.Telegram.Mode == "webhook" && cfg.Telegram.Webhook.Domain == "" {
		errs = append(errs, "telegram.webhook.domain is required in webhook mode")
	}

	if cfg.General.MaxConcurrentEvents < 1 || cfg.General.MaxConcurrentEvents > 100 {
		errs = append(errs, "general.maxConcurrentEvents must be between 1 and 100")
	}
	if cfg.Knowledge.Path == "" {
		errs = append(errs, "knowledge.path is required")
	}
	if cfg.Triage.ClassifyTimeoutSeconds < 1 {
		errs = append(errs, "triage.classifyTimeoutSeconds must be >= 1")
	}
	if cfg.Triage.DownvoteEmoji == "" {
		errs = append(errs, "triage.downvoteEmoji must not be empty")
	}
	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when audit is enabled")
	}

	if _, ok := cfg.Providers[cfg.General.DefaultProvider]; !ok {
		errs = append(errs, fmt.Sprintf("general.defaultProvider references unknown provider: %s", cfg.General.DefaultProvider))
	}
	for name, pc := range cfg.Providers {
		if pc.Enabled && pc.APIBase == "" && name != "ollama" {
			errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
