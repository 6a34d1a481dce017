package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr      string
	DBUrl     string
	Catalog   string
	Debug     bool
	LogFormat string
	TokenTTL  time.Duration

	// Admin API; disabled when TokenSecret is empty.
	TokenSecret       string
	AdminUser         string
	AdminPasswordHash string

	// Registration sink; registrations are refused when SpreadsheetID is empty.
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// environment mirrors the variables the deployment sets. Flags given on the
// command line take precedence over them.
type environment struct {
	SpreadsheetID     string `env:"GOOGLE_SPREADSHEET_ID"`
	CredentialsJSON   string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	CredentialsFile   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	DBUrl             string `env:"FESTREG_DB_URL"`
	LogFormat         string `env:"FESTREG_LOG_FORMAT" envDefault:"text"`
	TokenSecret       string `env:"FESTREG_TOKEN_SECRET"`
	AdminUser         string `env:"FESTREG_ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"FESTREG_ADMIN_PASSWORD_HASH"`
}

// Parse reads configuration from environ and then from the command-line
// args, which override it. A nil environ reads the process environment.
func Parse(args []string, environ map[string]string) (cfg Config, err error) {
	var e environment
	err = env.ParseWithOptions(&e, env.Options{Environment: environ})
	if err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("festreg", flag.ContinueOnError)
	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	fs.UintVar(&port, "port", 80, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", e.DBUrl, "path to SQLite3 registration journal (empty disables it)")
	fs.StringVar(&cfg.Catalog, "catalog", "", "YAML file of events replacing the built-in table")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	fs.StringVar(&cfg.LogFormat, "log-format", e.LogFormat, "log output format: text or json")
	fs.StringVar(&cfg.SpreadsheetID, "spreadsheet-id", e.SpreadsheetID, "destination Google spreadsheet id")
	fs.StringVar(&cfg.CredentialsFile, "credentials", e.CredentialsFile, "path to a service account key file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", e.TokenSecret, "secret key for admin tokens (empty disables the admin API)")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", 3600, "admin token TTL in seconds")
	fs.StringVar(&cfg.AdminUser, "admin-user", e.AdminUser, "admin user name")
	fs.StringVar(&cfg.AdminPasswordHash, "admin-password-hash", e.AdminPasswordHash, "bcrypt hash of the admin password")

	err = fs.Parse(args)
	if err != nil {
		return
	}

	cfg.CredentialsJSON = e.CredentialsJSON
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	switch {
	case port > 65535:
		err = fmt.Errorf("invalid -port %d", port)
	case cfg.LogFormat != "text" && cfg.LogFormat != "json":
		err = fmt.Errorf("invalid -log-format %q", cfg.LogFormat)
	case ttl == 0:
		err = errors.New("-token-ttl must be positive")
	case cfg.TokenSecret != "" && cfg.AdminPasswordHash == "":
		err = errors.New("missing parameter -admin-password-hash")
	}
	return
}

// AdminEnabled reports whether the admin API can issue tokens.
func (cfg Config) AdminEnabled() bool {
	return cfg.TokenSecret != ""
}

// RegistrationEnabled reports whether a destination spreadsheet is set.
func (cfg Config) RegistrationEnabled() bool {
	return cfg.SpreadsheetID != ""
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
