package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHECKOUT"

const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

// Config aggregates application configuration values.
type Config struct {
	Environment string
	HTTP        HTTPConfig
	Log         LogConfig
	Database    DatabaseConfig
	Charge      ChargeConfig
	Custody     CustodyConfig
	Checkout    CheckoutConfig
	Outbox      OutboxConfig
}

type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json|text
}

// DatabaseConfig points at the SQLite file. An empty path keeps everything
// in memory.
type DatabaseConfig struct {
	Path string
}

type ChargeConfig struct {
	BaseURL             string
	SecretKey           string
	ProcessingChannelID string
	Timeout             time.Duration
}

type CustodyConfig struct {
	BaseURL               string
	Email                 string
	Password              string
	AccountID             string
	ContactID             string
	AssetID               string
	FundsTransferMethodID string
	WebhookConfigID       string
	RequestsPerSecond     float64
	TokenTTL              time.Duration
	Timeout               time.Duration
}

type CheckoutConfig struct {
	ProcessDelay   time.Duration
	KYCThreshold   decimal.Decimal
	DefaultFee     decimal.Decimal
	DefaultFeeType string
	FrontendURI    string
	LockMaxPending int
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvironmentSandbox)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.path", "")

	v.SetDefault("charge.base_url", "https://api.sandbox.checkout.com")
	v.SetDefault("charge.secret_key", "")
	v.SetDefault("charge.processing_channel_id", "")
	v.SetDefault("charge.timeout", 15*time.Second)

	v.SetDefault("custody.base_url", "https://sandbox.primetrust.com")
	v.SetDefault("custody.email", "")
	v.SetDefault("custody.password", "")
	v.SetDefault("custody.account_id", "")
	v.SetDefault("custody.contact_id", "")
	v.SetDefault("custody.asset_id", "")
	v.SetDefault("custody.funds_transfer_method_id", "")
	v.SetDefault("custody.webhook_config_id", "")
	v.SetDefault("custody.requests_per_second", 10.0)
	v.SetDefault("custody.token_ttl", 30*24*time.Hour)
	v.SetDefault("custody.timeout", 20*time.Second)

	v.SetDefault("checkout.process_delay", 5*time.Second)
	v.SetDefault("checkout.kyc_threshold", "500")
	v.SetDefault("checkout.default_fee", "2")
	v.SetDefault("checkout.default_fee_type", "percent")
	v.SetDefault("checkout.frontend_uri", "http://localhost:3000")
	v.SetDefault("checkout.lock_max_pending", 1000)

	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 20)
	v.SetDefault("outbox.max_attempts", 8)
	v.SetDefault("outbox.base_delay", 2*time.Second)
	v.SetDefault("outbox.max_delay", 10*time.Minute)
}

// New returns a viper instance reading CHECKOUT_* environment variables and,
// when file is not empty, a config file.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	return v, nil
}

// Load reads configuration, applying defaults.
func Load(file string) (Config, error) {
	v, err := New(file)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Environment: strings.ToLower(v.GetString("environment")),
		HTTP: HTTPConfig{
			Host:            v.GetString("http.host"),
			Port:            v.GetInt("http.port"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Charge: ChargeConfig{
			BaseURL:             v.GetString("charge.base_url"),
			SecretKey:           v.GetString("charge.secret_key"),
			ProcessingChannelID: v.GetString("charge.processing_channel_id"),
			Timeout:             v.GetDuration("charge.timeout"),
		},
		Custody: CustodyConfig{
			BaseURL:               v.GetString("custody.base_url"),
			Email:                 v.GetString("custody.email"),
			Password:              v.GetString("custody.password"),
			AccountID:             v.GetString("custody.account_id"),
			ContactID:             v.GetString("custody.contact_id"),
			AssetID:               v.GetString("custody.asset_id"),
			FundsTransferMethodID: v.GetString("custody.funds_transfer_method_id"),
			WebhookConfigID:       v.GetString("custody.webhook_config_id"),
			RequestsPerSecond:     v.GetFloat64("custody.requests_per_second"),
			TokenTTL:              v.GetDuration("custody.token_ttl"),
			Timeout:               v.GetDuration("custody.timeout"),
		},
		Checkout: CheckoutConfig{
			ProcessDelay:   v.GetDuration("checkout.process_delay"),
			DefaultFeeType: v.GetString("checkout.default_fee_type"),
			FrontendURI:    strings.TrimRight(v.GetString("checkout.frontend_uri"), "/"),
			LockMaxPending: v.GetInt("checkout.lock_max_pending"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("outbox.poll_interval"),
			BatchSize:    v.GetInt("outbox.batch_size"),
			MaxAttempts:  v.GetInt("outbox.max_attempts"),
			BaseDelay:    v.GetDuration("outbox.base_delay"),
			MaxDelay:     v.GetDuration("outbox.max_delay"),
		},
	}

	threshold, err := decimal.NewFromString(v.GetString("checkout.kyc_threshold"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid checkout.kyc_threshold: %w", err)
	}
	cfg.Checkout.KYCThreshold = threshold

	fee, err := decimal.NewFromString(v.GetString("checkout.default_fee"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid checkout.default_fee: %w", err)
	}
	cfg.Checkout.DefaultFee = fee

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	if c.Environment != EnvironmentProduction && c.Environment != EnvironmentSandbox {
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q",
			EnvironmentProduction, EnvironmentSandbox, c.Environment))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.HTTP.Port))
	}
	if c.Checkout.DefaultFeeType != "cash" && c.Checkout.DefaultFeeType != "percent" {
		errs = append(errs, fmt.Errorf("invalid checkout.default_fee_type %q", c.Checkout.DefaultFeeType))
	}
	if c.Checkout.ProcessDelay < 0 {
		errs = append(errs, errors.New("checkout.process_delay must not be negative"))
	}
	if c.Outbox.MaxAttempts <= 0 {
		errs = append(errs, errors.New("outbox.max_attempts must be positive"))
	}

	return errors.Join(errs...)
}

// RequireProviders checks the credentials needed to talk to the providers.
// Commands that never call them (migrate) skip it.
func (c Config) RequireProviders() error {
	var missing []string

	required := map[string]string{
		"charge.secret_key":                c.Charge.SecretKey,
		"custody.email":                    c.Custody.Email,
		"custody.password":                 c.Custody.Password,
		"custody.account_id":               c.Custody.AccountID,
		"custody.contact_id":               c.Custody.ContactID,
		"custody.asset_id":                 c.Custody.AssetID,
		"custody.funds_transfer_method_id": c.Custody.FundsTransferMethodID,
	}
	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
