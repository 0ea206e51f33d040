package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Booking  BookingConfig
	Sweeper  SweeperConfig
	Redis    RedisConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type SessionConfig struct {
	ExpiryHours int
}

type BookingConfig struct {
	// HoldDuration is how long a pending booking keeps its seats before the
	// sweeper releases them.
	HoldDuration time.Duration
	// CancelWindow is how long after creation a confirmed booking may still
	// be canceled by its owner.
	CancelWindow time.Duration
}

type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

type RedisConfig struct {
	// Addr empty means single-instance mode: real-time events stay on the
	// in-process bus instead of Redis pub/sub.
	Addr     string
	Password string
	DB       int
}

type PaymentConfig struct {
	BaseURL    string
	MerchantID string
	Secret     string
	WebhookURL string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("BOOKING_HOLD_MINUTES", 5)
	viper.SetDefault("BOOKING_CANCEL_WINDOW_HOURS", 24)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("SWEEP_BATCH_SIZE", 100)
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Booking: BookingConfig{
			HoldDuration: time.Duration(viper.GetInt("BOOKING_HOLD_MINUTES")) * time.Minute,
			CancelWindow: time.Duration(viper.GetInt("BOOKING_CANCEL_WINDOW_HOURS")) * time.Hour,
		},
		Sweeper: SweeperConfig{
			Interval:  time.Duration(viper.GetInt("SWEEP_INTERVAL_SECONDS")) * time.Second,
			BatchSize: viper.GetInt("SWEEP_BATCH_SIZE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Payment: PaymentConfig{
			BaseURL:    viper.GetString("PAYMENT_BASE_URL"),
			MerchantID: viper.GetString("PAYMENT_MERCHANT_ID"),
			Secret:     viper.GetString("PAYMENT_SECRET"),
			WebhookURL: viper.GetString("PAYMENT_WEBHOOK_URL"),
		},
	}

	return config, nil
}
