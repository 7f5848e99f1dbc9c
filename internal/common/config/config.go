package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	API           APIConfig               `mapstructure:"api"`
	Voice         VoiceConfig             `mapstructure:"voice"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Recovery      RecoveryConfig          `mapstructure:"recovery"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Locale        LocaleConfig            `mapstructure:"locale"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig points at the marketplace backend. Timeouts are milliseconds;
// zero means the transport default.
type APIConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Timeouts struct {
		Account       int `mapstructure:"account"`
		Profile       int `mapstructure:"profile"`
		Transcription int `mapstructure:"transcription"`
		Extraction    int `mapstructure:"extraction"`
		Conversation  int `mapstructure:"conversation"`
		Transport     int `mapstructure:"transport"`
	} `mapstructure:"timeouts"`
}

// VoiceConfig tunes the voice capture session.
type VoiceConfig struct {
	TickInterval            int      `mapstructure:"tick_interval"` // milliseconds
	Formats                 []string `mapstructure:"formats"`
	DisableEchoCancellation bool     `mapstructure:"disable_echo_cancellation"`
	DisableNoiseSuppression bool     `mapstructure:"disable_noise_suppression"`
}

// StorageConfig selects where the identity token is persisted.
type StorageConfig struct {
	TokenBackend string `mapstructure:"token_backend"` // file | redis
	TokenFile    string `mapstructure:"token_file"`
	RedisKey     string `mapstructure:"redis_key"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RecoveryConfig controls the outbox of worker profiles that failed after
// their identity was created.
type RecoveryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BatchSize int    `mapstructure:"batch_size"`
	ProcessID string `mapstructure:"process_id"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	CompletionMsg  string `mapstructure:"completion_message"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// NotificationConfig holds settings for the temporary password SMS.
type NotificationConfig struct {
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
}

type LocaleConfig struct {
	Default string `mapstructure:"default"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
