// Package config resolves the server settings. Each setting is taken from the
// first of: a command line flag, a KALCKI_* environment variable, the same
// variable in an optional .env file, the built-in default.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/kalcki/internal/auth"
)

// Config holds the resolved server settings.
type Config struct {
	DBPath      string
	Addr        string
	AdminUser   string
	LogPath     string
	CatalogPath string
	TokenTTL    time.Duration
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		DBPath:    "kalcki.sqlite3",
		Addr:      ":8080",
		AdminUser: "Admin",
		TokenTTL:  auth.DefaultTTL,
	}
}

const usage = `Usage: kalcki [flags]

Flags:
  -d, -db <path>          SQLite database path (env KALCKI_DB, default: kalcki.sqlite3)
  -a, -addr <host:port>   listen address (env KALCKI_ADDR, default: :8080)
  -u, -user <name>        admin username on first run (env KALCKI_ADMIN_USER, default: Admin)
  -l, -log <path>         log file path (env KALCKI_LOG, default: stdout/stderr only)
  -catalog <path>         YAML variety catalog seeded for the admin on first run (env KALCKI_CATALOG)
  -token-ttl <duration>   access token lifetime (env KALCKI_TOKEN_TTL, default: 168h)
  -h, -help               show this help and exit
`

// Load resolves the configuration from args (without the program name), the
// process environment and envFile. A missing envFile is not an error. Load
// returns flag.ErrHelp when help was requested.
func Load(args []string, envFile string, output io.Writer) (Config, error) {
	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case !errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}

	cfg := Defaults()
	if v, ok := lookup("KALCKI_DB"); ok {
		cfg.DBPath = v
	}
	if v, ok := lookup("KALCKI_ADDR"); ok {
		cfg.Addr = v
	}
	if v, ok := lookup("KALCKI_ADMIN_USER"); ok {
		cfg.AdminUser = v
	}
	if v, ok := lookup("KALCKI_LOG"); ok {
		cfg.LogPath = v
	}
	if v, ok := lookup("KALCKI_CATALOG"); ok {
		cfg.CatalogPath = v
	}
	if v, ok := lookup("KALCKI_TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("KALCKI_TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = ttl
	}

	flags := flag.NewFlagSet("kalcki", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() { fmt.Fprint(output, usage) }

	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	flags.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	flags.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	flags.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	flags.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")
	flags.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	flags.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	flags.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "")
	flags.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return Config{}, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("token TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.AdminUser == "" {
		return Config{}, errors.New("admin username must not be empty")
	}
	return cfg, nil
}
