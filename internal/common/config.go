package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	Server       ServerConfig       `toml:"server"`
	Logging      LoggingConfig      `toml:"logging"`
	Storage      StorageConfig      `toml:"storage"`
	ControlPlane ControlPlaneConfig `toml:"control_plane"`
	Browser      BrowserConfig      `toml:"browser"`
	Target       TargetConfig       `toml:"target"`
	Login        LoginConfig        `toml:"login"`
	TOTP         TOTPConfig         `toml:"totp"`
	Extraction   ExtractionConfig   `toml:"extraction"`
	DirectAPI    DirectAPIConfig    `toml:"direct_api"`
	Batch        BatchConfig        `toml:"batch"`
	Windows      WindowsConfig      `toml:"windows"`
	Credentials  CredentialsConfig  `toml:"credentials"`
	Schedule     ScheduleConfig     `toml:"schedule"`
	WebSocket    WebSocketConfig    `toml:"websocket"`
}

// Duration is a time.Duration that reads from a TOML string such as "30s"
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
	FileName   string   `toml:"file_name"`   // relative to the executable's logs directory
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig configures the run-history store
type BadgerConfig struct {
	Path           string `toml:"path"`
	InMemory       bool   `toml:"in_memory"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// ControlPlaneConfig points at the local profile manager API
type ControlPlaneConfig struct {
	BaseURL        string   `toml:"base_url" validate:"required,url"`
	RequestTimeout Duration `toml:"request_timeout" validate:"gt=0"`
	RateLimit      int      `toml:"rate_limit" validate:"min=1"` // requests per second
}

type BrowserConfig struct {
	Host           string   `toml:"host" validate:"required"` // host serving the remote debugging ports
	ConnectTimeout Duration `toml:"connect_timeout" validate:"gt=0"`
	Stealth        bool     `toml:"stealth"` // inject anti-detection script into new documents
}

// TargetConfig describes the seller portal
type TargetConfig struct {
	LoginURL           string   `toml:"login_url" validate:"required,url"`
	FinanceURL         string   `toml:"finance_url" validate:"required,url"`
	APIBaseURL         string   `toml:"api_base_url" validate:"required,url"`
	CookieDomain       string   `toml:"cookie_domain" validate:"required"`
	LoginPath          string   `toml:"login_path" validate:"required"`
	AuthenticatedPaths []string `toml:"authenticated_paths" validate:"min=1"`
	SellerIDParam      string   `toml:"seller_id_param" validate:"required"`
	OECSellerIDParam   string   `toml:"oec_seller_id_param" validate:"required"`
	Locale             string   `toml:"locale" validate:"required"`
}

// LoginConfig holds the login automaton timeouts and typing cadence
type LoginConfig struct {
	NavigationTimeout Duration `toml:"navigation_timeout" validate:"gt=0"`
	FormTimeout       Duration `toml:"form_timeout" validate:"gt=0"`
	TwoFactorTimeout  Duration `toml:"two_factor_timeout" validate:"gt=0"`
	RedirectTimeout   Duration `toml:"redirect_timeout" validate:"gt=0"`
	TypingDelayMin    Duration `toml:"typing_delay_min" validate:"gte=0"`
	TypingDelayMax    Duration `toml:"typing_delay_max" validate:"gtefield=TypingDelayMin,lte=2000000000"`
	FieldPauseMin     Duration `toml:"field_pause_min" validate:"gte=0"`
	FieldPauseMax     Duration `toml:"field_pause_max" validate:"gtefield=FieldPauseMin,lte=5000000000"`
}

type TOTPConfig struct {
	Mode     string   `toml:"mode" validate:"oneof=remote local"`
	Endpoint string   `toml:"endpoint"` // "{secret}" is substituted, otherwise the secret is appended as a path segment
	Timeout  Duration `toml:"timeout" validate:"gt=0"`
}

type ExtractionConfig struct {
	Deadline     Duration `toml:"deadline" validate:"gt=0"`
	PollInterval Duration `toml:"poll_interval" validate:"gt=0"`
}

// DirectAPIConfig configures the cookie-authenticated HTTP client
type DirectAPIConfig struct {
	OnHoldPath       string   `toml:"on_hold_path" validate:"required"`
	PaymentsPath     string   `toml:"payments_path" validate:"required"`
	SettlementPath   string   `toml:"settlement_path" validate:"required"`
	UserAgent        string   `toml:"user_agent" validate:"required"`
	RequestTimeout   Duration `toml:"request_timeout" validate:"gt=0"`
	RateLimit        int      `toml:"rate_limit" validate:"min=1"`
	MonthConcurrency int      `toml:"month_concurrency" validate:"min=1"`
	UTCOffsetHours   int      `toml:"utc_offset_hours" validate:"min=-12,max=14"`
}

type BatchConfig struct {
	ChunkSize     int      `toml:"chunk_size" validate:"min=1"`
	MaxRetries    int      `toml:"max_retries" validate:"min=0"`
	Stagger       Duration `toml:"stagger" validate:"gte=0"`
	RetryBackoff  Duration `toml:"retry_backoff" validate:"gte=0"`
	ChunkCooldown Duration `toml:"chunk_cooldown" validate:"gte=0"`
}

// WindowsConfig describes the grid used to place visible login windows
type WindowsConfig struct {
	MaxSlots int `toml:"max_slots" validate:"min=1,max=64"`
	Columns  int `toml:"columns" validate:"min=1"`
	Width    int `toml:"width" validate:"min=200"`
	Height   int `toml:"height" validate:"min=200"`
	Gap      int `toml:"gap" validate:"min=0"`
	Left     int `toml:"left"`
	Top      int `toml:"top"`
}

type CredentialsConfig struct {
	File string `toml:"file"` // optional spreadsheet loaded at startup
}

type ScheduleConfig struct {
	Enabled    bool     `toml:"enabled"`
	Cron       string   `toml:"cron"`
	ProfileIDs []string `toml:"profile_ids"` // empty means every profile known to the control plane
}

type WebSocketConfig struct {
	AllowedEvents    []string `toml:"allowed_events"`    // empty allows all
	ProgressThrottle Duration `toml:"progress_throttle"` // minimum gap between per-job progress messages; 0 disables
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8095,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
			FileName:   "sellersync.log",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/runs",
			},
		},
		ControlPlane: ControlPlaneConfig{
			BaseURL:        "http://127.0.0.1:35000",
			RequestTimeout: Duration(15 * time.Second),
			RateLimit:      5,
		},
		Browser: BrowserConfig{
			Host:           "127.0.0.1",
			ConnectTimeout: Duration(10 * time.Second),
			Stealth:        true,
		},
		Target: TargetConfig{
			LoginURL:           "https://seller-us.tiktok.com/account/login",
			FinanceURL:         "https://seller-us.tiktok.com/finance/bills",
			APIBaseURL:         "https://seller-us.tiktok.com",
			CookieDomain:       "tiktok.com",
			LoginPath:          "/account/login",
			AuthenticatedPaths: []string{"/homepage", "/finance", "/order", "/product"},
			SellerIDParam:      "seller_id",
			OECSellerIDParam:   "oec_seller_id",
			Locale:             "en",
		},
		Login: LoginConfig{
			NavigationTimeout: Duration(30 * time.Second),
			FormTimeout:       Duration(15 * time.Second),
			TwoFactorTimeout:  Duration(10 * time.Second),
			RedirectTimeout:   Duration(20 * time.Second),
			TypingDelayMin:    Duration(40 * time.Millisecond),
			TypingDelayMax:    Duration(120 * time.Millisecond),
			FieldPauseMin:     Duration(300 * time.Millisecond),
			FieldPauseMax:     Duration(800 * time.Millisecond),
		},
		TOTP: TOTPConfig{
			Mode:     "remote",
			Endpoint: "https://2fa.live/tok/{secret}",
			Timeout:  Duration(10 * time.Second),
		},
		Extraction: ExtractionConfig{
			Deadline:     Duration(30 * time.Second),
			PollInterval: Duration(time.Second),
		},
		DirectAPI: DirectAPIConfig{
			OnHoldPath:       "/api/v1/pay/statement/on_hold/stat",
			PaymentsPath:     "/api/v1/pay/payment/summary",
			SettlementPath:   "/api/v1/pay/statement/settlement/stat",
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			RequestTimeout:   Duration(20 * time.Second),
			RateLimit:        4,
			MonthConcurrency: 4,
			UTCOffsetHours:   -8,
		},
		Batch: BatchConfig{
			ChunkSize:     3,
			MaxRetries:    1,
			Stagger:       Duration(time.Second),
			RetryBackoff:  Duration(3 * time.Second),
			ChunkCooldown: Duration(2 * time.Second),
		},
		Windows: WindowsConfig{
			MaxSlots: 6,
			Columns:  3,
			Width:    640,
			Height:   540,
			Gap:      8,
		},
		Schedule: ScheduleConfig{
			Cron: "0 6 * * *",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> environment variables.
// CLI flags are applied afterwards by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SELLERSYNC_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("SELLERSYNC_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SELLERSYNC_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging
	if level := os.Getenv("SELLERSYNC_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("SELLERSYNC_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}

	// Storage
	if badgerPath := os.Getenv("SELLERSYNC_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Control plane and browser
	if baseURL := os.Getenv("SELLERSYNC_CONTROL_PLANE_URL"); baseURL != "" {
		config.ControlPlane.BaseURL = baseURL
	}
	if host := os.Getenv("SELLERSYNC_BROWSER_HOST"); host != "" {
		config.Browser.Host = host
	}

	// TOTP
	if mode := os.Getenv("SELLERSYNC_TOTP_MODE"); mode != "" {
		config.TOTP.Mode = mode
	}
	if endpoint := os.Getenv("SELLERSYNC_TOTP_ENDPOINT"); endpoint != "" {
		config.TOTP.Endpoint = endpoint
	}

	// Batch
	if chunkSize := os.Getenv("SELLERSYNC_BATCH_CHUNK_SIZE"); chunkSize != "" {
		if c, err := strconv.Atoi(chunkSize); err == nil {
			config.Batch.ChunkSize = c
		}
	}
	if maxRetries := os.Getenv("SELLERSYNC_BATCH_MAX_RETRIES"); maxRetries != "" {
		if r, err := strconv.Atoi(maxRetries); err == nil {
			config.Batch.MaxRetries = r
		}
	}

	// Credentials
	if file := os.Getenv("SELLERSYNC_CREDENTIALS_FILE"); file != "" {
		config.Credentials.File = file
	}

	// Schedule
	if enabled := os.Getenv("SELLERSYNC_SCHEDULE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Schedule.Enabled = e
		}
	}
	if expr := os.Getenv("SELLERSYNC_SCHEDULE_CRON"); expr != "" {
		config.Schedule.Cron = expr
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string, credentialsFile string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if credentialsFile != "" {
		config.Credentials.File = credentialsFile
	}
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Schedule.Enabled {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid configuration: schedule: %w", err)
		}
	}

	if c.TOTP.Mode == "remote" && c.TOTP.Endpoint == "" {
		return fmt.Errorf("invalid configuration: totp endpoint required in remote mode")
	}

	return nil
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
