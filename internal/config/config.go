// backend-go/internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Prophet   ProphetConfig
	Forecast  ForecastConfig
	Alert     AlertConfig
	Backtest  BacktestConfig
	Scheduler SchedulerConfig
	LogLevel  string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host                string
	Port                string
	User                string
	Password            string
	DBName              string
	SSLMode             string
	QueryTimeoutSeconds int
}

// QueryTimeout bounds every repository call.
func (c DatabaseConfig) QueryTimeout() time.Duration {
	if c.QueryTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	MetricsTTLSeconds int
}

// ProphetConfig configures the external advanced forecasting service.
type ProphetConfig struct {
	BaseURL            string
	Enabled            bool
	Timeout            time.Duration
	MinHistoryDays     int
	ConfidenceInterval float64
}

// ForecastConfig holds the classical model tunables.
// LookbackDays and BaselineWindow are deliberately separate knobs.
type ForecastConfig struct {
	LookbackDays   int
	MAWindow       int
	BaselineWindow int
	DefaultHorizon int
	MaxHorizon     int
	WorkerCount    int
}

type AlertConfig struct {
	DaysThreshold int
}

type BacktestConfig struct {
	WindowDays int
}

type SchedulerConfig struct {
	Enabled          bool
	AlertInterval    time.Duration
	BacktestInterval time.Duration
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "retail")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_QUERY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_METRICS_TTL_SECONDS", 300)
	viper.SetDefault("PROPHET_SERVICE_URL", "http://localhost:8001")
	viper.SetDefault("PROPHET_ENABLED", false)
	viper.SetDefault("PROPHET_TIMEOUT_SECONDS", 30)
	viper.SetDefault("PROPHET_MIN_HISTORY_DAYS", 40)
	viper.SetDefault("PROPHET_CONFIDENCE_INTERVAL", 0.95)
	viper.SetDefault("FORECAST_LOOKBACK_DAYS", 90)
	viper.SetDefault("FORECAST_MA_WINDOW", 7)
	viper.SetDefault("FORECAST_BASELINE_WINDOW", 90)
	viper.SetDefault("FORECAST_DEFAULT_HORIZON", 7)
	viper.SetDefault("FORECAST_MAX_HORIZON", 90)
	viper.SetDefault("WORKER_COUNT", 4)
	viper.SetDefault("ALERT_DAYS_THRESHOLD", 7)
	viper.SetDefault("BACKTEST_WINDOW_DAYS", 14)
	viper.SetDefault("SCHEDULER_ENABLED", false)
	viper.SetDefault("SCHEDULER_ALERT_INTERVAL_MINUTES", 60)
	viper.SetDefault("SCHEDULER_BACKTEST_INTERVAL_MINUTES", 24*60)
	viper.SetDefault("LOG_LEVEL", "info")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:                viper.GetString("DB_HOST"),
			Port:                viper.GetString("DB_PORT"),
			User:                viper.GetString("DB_USER"),
			Password:            viper.GetString("DB_PASSWORD"),
			DBName:              viper.GetString("DB_NAME"),
			SSLMode:             viper.GetString("DB_SSLMODE"),
			QueryTimeoutSeconds: viper.GetInt("DB_QUERY_TIMEOUT_SECONDS"),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			MetricsTTLSeconds: viper.GetInt("CACHE_METRICS_TTL_SECONDS"),
		},
		Prophet: ProphetConfig{
			BaseURL:            viper.GetString("PROPHET_SERVICE_URL"),
			Enabled:            viper.GetBool("PROPHET_ENABLED"),
			Timeout:            time.Duration(viper.GetInt("PROPHET_TIMEOUT_SECONDS")) * time.Second,
			MinHistoryDays:     viper.GetInt("PROPHET_MIN_HISTORY_DAYS"),
			ConfidenceInterval: viper.GetFloat64("PROPHET_CONFIDENCE_INTERVAL"),
		},
		Forecast: ForecastConfig{
			LookbackDays:   viper.GetInt("FORECAST_LOOKBACK_DAYS"),
			MAWindow:       viper.GetInt("FORECAST_MA_WINDOW"),
			BaselineWindow: viper.GetInt("FORECAST_BASELINE_WINDOW"),
			DefaultHorizon: viper.GetInt("FORECAST_DEFAULT_HORIZON"),
			MaxHorizon:     viper.GetInt("FORECAST_MAX_HORIZON"),
			WorkerCount:    viper.GetInt("WORKER_COUNT"),
		},
		Alert: AlertConfig{
			DaysThreshold: viper.GetInt("ALERT_DAYS_THRESHOLD"),
		},
		Backtest: BacktestConfig{
			WindowDays: viper.GetInt("BACKTEST_WINDOW_DAYS"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          viper.GetBool("SCHEDULER_ENABLED"),
			AlertInterval:    time.Duration(viper.GetInt("SCHEDULER_ALERT_INTERVAL_MINUTES")) * time.Minute,
			BacktestInterval: time.Duration(viper.GetInt("SCHEDULER_BACKTEST_INTERVAL_MINUTES")) * time.Minute,
		},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}
}
