package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// State backends.
const (
	BackendFile   = "file"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Interpreter strategies.
const (
	StrategyPattern = "pattern"
	StrategyAI      = "ai"
)

// Webhook reply modes.
const (
	ReplyModeTwiML = "twiml"
	ReplyModeAPI   = "api"
)

// ProviderGemini is the only supported LLM provider.
const ProviderGemini = "gemini"

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	State       StateConfig       `yaml:"state"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	LLM         LLMConfig         `yaml:"llm"`
	Messaging   MessagingConfig   `yaml:"messaging"`
	History     HistoryConfig     `yaml:"history"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.State, &c.Interpreter, &c.LLM, &c.Messaging, &c.History, &c.Auth, &c.RateLimit,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Interpreter.Strategy == StrategyAI && c.LLM.APIKey == "" {
		return fmt.Errorf("interpreter: strategy %q requires llm.api_key", StrategyAI)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a copy of every log record in text form.
	LogFile     string     `yaml:"log_file"`
	HTTP        HTTPConfig `yaml:"http"`
	CORSOrigins []string   `yaml:"cors_origins"`
	// StaticDir, when set, is served at / next to the API.
	StaticDir string `yaml:"static_dir"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.StaticDir != "" {
		info, err := os.Stat(c.StaticDir)
		if err != nil {
			return fmt.Errorf("app: static_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("app: static_dir %q is not a directory", c.StaticDir)
		}
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StateConfig selects where the webpage document is persisted.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	// Watch reloads the document when the state file is edited externally.
	Watch bool     `yaml:"watch"`
	S3    S3Config `yaml:"s3"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendFile, BackendS3, BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend == BackendFile, validation.Required)),
	); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	if c.Backend == BackendS3 {
		return c.S3.Validate()
	}
	return nil
}

// S3Config holds object storage settings for the s3 backend.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.Key, validation.Required),
	); err != nil {
		return fmt.Errorf("state.s3: %w", err)
	}
	return nil
}

// InterpreterConfig configures instruction interpretation.
type InterpreterConfig struct {
	Strategy string        `yaml:"strategy"`
	Timeout  time.Duration `yaml:"timeout"`
	// StrictText rejects unquoted text updates instead of using the whole
	// instruction as the new text.
	StrictText bool          `yaml:"strict_text"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// Validate validates the interpreter configuration.
func (c *InterpreterConfig) Validate() error {
	if c.Strategy == "" {
		c.Strategy = StrategyPattern
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Strategy, validation.In(StrategyPattern, StrategyAI)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheSize, validation.Min(0)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("interpreter: %w", err)
	}
	return nil
}

// LLMConfig holds the language model client settings.
type LLMConfig struct {
	Provider string  `yaml:"provider"`
	APIKey   string  `yaml:"api_key"`
	Model    string  `yaml:"model"`
	RPS      float64 `yaml:"rps"`
	Burst    int     `yaml:"burst"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ProviderGemini)),
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}

// MessagingConfig configures WhatsApp replies.
type MessagingConfig struct {
	ReplyMode string       `yaml:"reply_mode"`
	Twilio    TwilioConfig `yaml:"twilio"`
}

// Validate validates the messaging configuration.
func (c *MessagingConfig) Validate() error {
	if c.ReplyMode == "" {
		c.ReplyMode = ReplyModeTwiML
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ReplyMode, validation.In(ReplyModeTwiML, ReplyModeAPI)),
	); err != nil {
		return fmt.Errorf("messaging: %w", err)
	}
	if c.ReplyMode == ReplyModeAPI {
		return c.Twilio.Validate()
	}
	return nil
}

// TwilioConfig holds Twilio REST credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
	BaseURL    string `yaml:"base_url"`
}

// Validate validates the Twilio configuration.
func (c *TwilioConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.AccountSID, validation.Required),
		validation.Field(&c.AuthToken, validation.Required),
		validation.Field(&c.From, validation.Required),
	); err != nil {
		return fmt.Errorf("messaging.twilio: %w", err)
	}
	return nil
}

// HistoryConfig holds the audit log database settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RateLimitConfig limits the instruction endpoints. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
			CORSOrigins: []string{"*"},
		},
		State: StateConfig{
			Backend: BackendFile,
			Path:    "./data/state.json",
			Watch:   true,
			S3: S3Config{
				Key: "pagebot/state.json",
			},
		},
		Interpreter: InterpreterConfig{
			Strategy:  StrategyPattern,
			Timeout:   15 * time.Second,
			CacheSize: 256,
			CacheTTL:  10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider: ProviderGemini,
			Model:    "gemini-2.0-flash",
			RPS:      1,
			Burst:    1,
		},
		Messaging: MessagingConfig{
			ReplyMode: ReplyModeTwiML,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "./data/history.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}
