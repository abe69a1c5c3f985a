package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config is read once from the environment at startup.
type Config struct {
	Port        string
	DatabaseURL string
	MongoURI    string
	RabbitMQURI string

	JWTSecret string
	JWTTTL    time.Duration

	AccountPrefix  string
	InitialBalance decimal.Decimal
	ExternalFee    decimal.Decimal

	SchedulerInterval time.Duration

	SMTPAddr     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string

	BankName string
	Currency string
}

// LoadConfig reads the settings through getenv, normally os.Getenv.
// DATABASE_URL, MONGO_URI and RABBITMQ_URI are optional: without them the
// service runs on the in-memory store, skips the activity log and settles
// transfers inline.
func LoadConfig(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	cfg := Config{
		Port:          get("PORT", "8000"),
		DatabaseURL:   getenv("DATABASE_URL"),
		MongoURI:      getenv("MONGO_URI"),
		RabbitMQURI:   getenv("RABBITMQ_URI"),
		JWTSecret:     getenv("JWT_SECRET"),
		AccountPrefix: get("ACCOUNT_NUMBER_PREFIX", "MB"),
		SMTPAddr:      getenv("SMTP_ADDR"),
		SMTPFrom:      get("SMTP_FROM", "noreply@melvinbank.zm"),
		SMTPUser:      getenv("SMTP_USER"),
		SMTPPassword:  getenv("SMTP_PASSWORD"),
		BankName:      get("BANK_NAME", "MelvinBank Zambia"),
		Currency:      get("CURRENCY", "ZMW"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if len(cfg.AccountPrefix) != 2 {
		return Config{}, fmt.Errorf("ACCOUNT_NUMBER_PREFIX must be 2 characters, got %q", cfg.AccountPrefix)
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(get("JWT_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("JWT_TTL: %w", err)
	}
	if cfg.SchedulerInterval, err = time.ParseDuration(get("SCHEDULER_INTERVAL", "1m")); err != nil {
		return Config{}, fmt.Errorf("SCHEDULER_INTERVAL: %w", err)
	}
	if cfg.InitialBalance, err = decimal.NewFromString(get("INITIAL_BALANCE", "1000.00")); err != nil {
		return Config{}, fmt.Errorf("INITIAL_BALANCE: %w", err)
	}
	if cfg.ExternalFee, err = decimal.NewFromString(get("EXTERNAL_TRANSFER_FEE", "5.00")); err != nil {
		return Config{}, fmt.Errorf("EXTERNAL_TRANSFER_FEE: %w", err)
	}
	if cfg.InitialBalance.IsNegative() || cfg.ExternalFee.IsNegative() {
		return Config{}, errors.New("INITIAL_BALANCE and EXTERNAL_TRANSFER_FEE must not be negative")
	}
	return cfg, nil
}
