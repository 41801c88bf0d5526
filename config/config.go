package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/raynx/hrm-portal/attendance"
	"github.com/raynx/hrm-portal/database"
	"github.com/raynx/hrm-portal/timecalc"
)

// session store kinds
const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Config is everything the portal reads from its environment
type Config struct {
	APIURL string
	// WSURL is the push endpoint; empty means derived from APIURL
	WSURL string

	SessionStore string
	BoltPath     string
	PostgresDSN  string

	Attendance          attendance.Config
	AutoCheckout        bool
	NotificationRefresh time.Duration
}

// Load reads the optional env files (".env" when none are given), then the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("no env file", "file", f)
				continue
			}
			return Config{}, fmt.Errorf("could not read env file %s: %w", f, err)
		}
		slog.Info("loaded env file", "file", f)
	}

	cfg := Config{
		APIURL:       env("HRM_API_URL", "http://localhost:8080"),
		WSURL:        os.Getenv("HRM_WS_URL"),
		SessionStore: strings.ToLower(env("HRM_SESSION_STORE", StoreBolt)),
		BoltPath:     env("HRM_BOLT_PATH", "hrm-session.db"),
		PostgresDSN:  os.Getenv("HRM_PG_DSN"),
		Attendance:   attendance.DefaultConfig(),
	}

	switch cfg.SessionStore {
	case StoreBolt:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			dsn, err := dsnFromParts()
			if err != nil {
				return Config{}, err
			}
			cfg.PostgresDSN = dsn
		}
	default:
		return Config{}, fmt.Errorf("HRM_SESSION_STORE must be one of (bolt, postgres) received %s", cfg.SessionStore)
	}

	if tz := os.Getenv("HRM_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("HRM_TIMEZONE: %w", err)
		}
		cfg.Attendance.Location = loc
	}

	if v := os.Getenv("HRM_OFFICE_START"); v != "" {
		m, ok := timecalc.ParseHHMM(v)
		if !ok {
			return Config{}, fmt.Errorf("HRM_OFFICE_START must look like 10:00 received %s", v)
		}
		cfg.Attendance.OfficeStartHour, cfg.Attendance.OfficeStartMinute = m/60, m%60
	}

	if v := os.Getenv("HRM_SHIFT_HOURS"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("HRM_SHIFT_HOURS must be a positive number received %s", v)
		}
		cfg.Attendance.ShiftMinutes = int(hours * 60)
	}

	if v := os.Getenv("HRM_SHIFT_WINDOW"); v != "" {
		w, err := timecalc.ParseShiftWindow(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Attendance.Window = w
	}

	switch v := strings.ToLower(os.Getenv("HRM_AUTO_CHECKOUT")); v {
	case "", "18:00":
		cfg.AutoCheckout = true
	case "off", "false", "no":
		cfg.AutoCheckout = false
	default:
		m, ok := timecalc.ParseHHMM(v)
		if !ok {
			return Config{}, fmt.Errorf("HRM_AUTO_CHECKOUT must be a time like 18:00 or off received %s", v)
		}
		cfg.AutoCheckout = true
		cfg.Attendance.AutoCheckoutMinute = m
	}

	if v := os.Getenv("HRM_NOTIFICATION_REFRESH"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("HRM_NOTIFICATION_REFRESH: %w", err)
		}
		cfg.NotificationRefresh = d
	}

	return cfg, nil
}

// OpenSessionStore opens the persister selected by SessionStore
func (c Config) OpenSessionStore() (database.Store, error) {
	if c.SessionStore == StorePostgres {
		pg, err := database.OpenPostgres(c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	b, err := database.OpenBolt(c.BoltPath)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// dsnFromParts builds the postgres DSN from HRM_DB_* variables
func dsnFromParts() (string, error) {
	var (
		host     = os.Getenv("HRM_DB_HOST")
		user     = os.Getenv("HRM_DB_USER")
		password = os.Getenv("HRM_DB_PASSWORD")
		dbname   = os.Getenv("HRM_DB_NAME")
	)
	port, err := strconv.Atoi(env("HRM_DB_PORT", "5432"))
	if err != nil {
		return "", fmt.Errorf("HRM_DB_PORT is not an int")
	}
	if host == "" || user == "" || dbname == "" {
		return "", errors.New("postgres session store needs HRM_PG_DSN or HRM_DB_HOST, HRM_DB_USER and HRM_DB_NAME")
	}
	return database.PostgresDSN(host, port, user, password, dbname), nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
