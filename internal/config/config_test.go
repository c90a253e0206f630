package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSQLite(t *testing.T) {
	t.Setenv("JWT_SECRET", "k")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("APP_TIMEZONE", "America/New_York")
	t.Setenv("CANCEL_WINDOW", "90m")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "30")

	c := Load()
	if c.DBDriver != "sqlite3" || c.SQLitePath != "gym.db" {
		t.Fatalf("driver = %q path = %q", c.DBDriver, c.SQLitePath)
	}
	if c.Location.String() != "America/New_York" {
		t.Fatalf("location = %s", c.Location)
	}
	if c.CancelWindow != 90*time.Minute || c.AccessTTL != 30*time.Minute || c.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("durations: %s %s %s", c.CancelWindow, c.AccessTTL, c.RefreshTTL)
	}
	if c.BenefitResetRule != DefaultBenefitResetRule {
		t.Fatalf("rule = %q", c.BenefitResetRule)
	}
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "-1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_BOOKING_CAPACITY", "50")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	c := LoadRateLimitConfig()
	if c.Enabled || c.Capacity != 1 || c.RefillInterval != time.Second || c.TTL != 5*time.Second {
		t.Fatalf("clamped: %+v", c)
	}
	b := c.Booking()
	if b.Capacity != 1 || b.KeyStrategy != "user_route" || b.Prefix != "gym:rl:booking" {
		t.Fatalf("booking: %+v", b)
	}
}

func TestCacheMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", " get, head ,")
	c := LoadCacheConfig()
	if len(c.Methods) != 2 || !c.Methods["GET"] || !c.Methods["HEAD"] {
		t.Fatalf("methods = %v", c.Methods)
	}
}

func TestRedisOptionsFromURL(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:pw@cache.internal:6380/2")
	opts, err := RedisOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache.internal:6380" || opts.Password != "pw" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GYM_TEST_A=fromfile\nGYM_TEST_B=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GYM_TEST_A", "fromenv")
	t.Setenv("GYM_TEST_B", "")
	os.Unsetenv("GYM_TEST_B")

	LoadDotEnv(path)
	if os.Getenv("GYM_TEST_A") != "fromenv" || os.Getenv("GYM_TEST_B") != "fromfile" {
		t.Fatalf("A=%q B=%q", os.Getenv("GYM_TEST_A"), os.Getenv("GYM_TEST_B"))
	}
	LoadDotEnv(filepath.Join(dir, "missing.env"))
}

func TestDatabaseOptionsAndLogLevel(t *testing.T) {
	c := Config{DBDriver: "sqlite3", SQLitePath: "x.db", LogLevel: "WARN"}
	if o := c.DatabaseOptions(); o.Driver != "sqlite3" || o.Path != "x.db" {
		t.Fatalf("options = %+v", o)
	}
	if parseLevel(c.LogLevel) != slog.LevelWarn || parseLevel("") != slog.LevelInfo {
		t.Fatal("parseLevel")
	}
}
