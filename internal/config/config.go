// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; variables already set in the environment win.
package config

import (
	"log"
	"os"
	"time"
	_ "time/tzdata" // APP_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"

	"github.com/iliyamo/gym-session-reservation/internal/database"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // APP_ENV
	Port string // APP_PORT

	DBDriver   string // DB_DRIVER: mysql (default) or sqlite3
	SQLitePath string // SQLITE_PATH, used when DB_DRIVER=sqlite3
	DBUser     string
	DBPass     string
	DBHost     string
	DBPort     string
	DBName     string

	JWTSecret  string
	AccessTTL  time.Duration // ACCESS_TOKEN_TTL_MIN
	RefreshTTL time.Duration // REFRESH_TOKEN_TTL_DAYS
	BcryptCost int

	Location     *time.Location // APP_TIMEZONE, zone session times are given in
	CancelWindow time.Duration  // CANCEL_WINDOW

	RabbitURL    string // RABBITMQ_URL; empty disables event publishing
	EventLogPath string // EVENT_LOG_PATH, written by the worker

	BenefitResetRule string // BENEFIT_RESET_RRULE
	LogLevel         string // LOG_LEVEL: debug, info, warn, error
}

// DefaultBenefitResetRule fires at midnight on the first of every month.
const DefaultBenefitResetRule = "FREQ=MONTHLY;BYMONTHDAY=1;BYHOUR=0;BYMINUTE=0;BYSECOND=0"

// LoadDotEnv reads .env (or the given files) into the process
// environment.  A missing file is not an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.Printf("config: reading .env: %v", err)
	}
}

// Load builds a Config from the environment.  Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message.
func Load() Config {
	c := Config{
		Env:              envStr("APP_ENV", "dev"),
		Port:             envStr("APP_PORT", "8080"),
		DBDriver:         envStr("DB_DRIVER", "mysql"),
		JWTSecret:        must("JWT_SECRET"),
		AccessTTL:        time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL:       time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		BcryptCost:       envInt("BCRYPT_COST", 12),
		CancelWindow:     envDur("CANCEL_WINDOW", 2*time.Hour),
		RabbitURL:        os.Getenv("RABBITMQ_URL"),
		EventLogPath:     envStr("EVENT_LOG_PATH", "logs/reservation_events.log"),
		BenefitResetRule: envStr("BENEFIT_RESET_RRULE", DefaultBenefitResetRule),
		LogLevel:         envStr("LOG_LEVEL", "info"),
	}
	switch c.DBDriver {
	case "sqlite3", "sqlite":
		c.DBDriver = "sqlite3"
		c.SQLitePath = envStr("SQLITE_PATH", "gym.db")
	case "mysql":
		c.DBUser = must("DB_USER")
		c.DBPass = os.Getenv("DB_PASS")
		c.DBHost = must("DB_HOST")
		c.DBPort = must("DB_PORT")
		c.DBName = must("DB_NAME")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", c.DBDriver)
	}

	tz := envStr("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", tz, err)
	}
	c.Location = loc
	if c.CancelWindow < 0 {
		log.Fatalf("invalid CANCEL_WINDOW: %s", c.CancelWindow)
	}
	return c
}

// DatabaseOptions maps the DB_* settings onto database.Open options.
func (c Config) DatabaseOptions() database.Options {
	return database.Options{
		Driver: database.Dialect(c.DBDriver),
		User:   c.DBUser,
		Pass:   c.DBPass,
		Host:   c.DBHost,
		Port:   c.DBPort,
		Name:   c.DBName,
		Path:   c.SQLitePath,
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
