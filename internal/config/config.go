// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config
// file, and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/mkrylov/identityd/internal/security"
)

// Options holds the configuration values for the application. Credential
// fields left at their zero value fall through to the defaults applied by
// the security factory.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// SMTPAddr is the mail relay (host:port). Empty selects the log mailer.
	SMTPAddr string `json:"smtp_addr"`

	// MailFrom is the sender address on outgoing mail.
	MailFrom string `json:"mail_from"`

	// HashAlgorithm selects the password hashing algorithm by name.
	HashAlgorithm string `json:"hash_algorithm"`

	// SecretKey signs password reset tokens. Required.
	SecretKey string `json:"secret_key"`

	// Pepper is an optional server-side secret mixed into every hash.
	Pepper string `json:"cost_pepper"`

	// Argon2 cost parameters. Zero means "use the built-in default".
	CostTime        int `json:"cost_time"`
	CostMemoryKiB   int `json:"cost_memory_kib"`
	CostParallelism int `json:"cost_parallelism"`
	CostHashLen     int `json:"cost_hash_len"`
	CostSaltLen     int `json:"cost_salt_len"`

	// Password strength rules. The Require* pointers distinguish an
	// explicit false from unset.
	PasswordMinLength int   `json:"password_min_length"`
	RequireUpper      *bool `json:"password_require_upper"`
	RequireLower      *bool `json:"password_require_lower"`
	RequireDigit      *bool `json:"password_require_digit"`
	RequireSpecial    *bool `json:"password_require_special"`

	// ResetTokenTTLSeconds is the lifetime of password reset tokens.
	ResetTokenTTLSeconds int `json:"reset_token_ttl_seconds"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Address, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, config file and environment
// variables to set configuration values. Environment variables win over
// the config file, which wins over flags. It returns a pointer to the
// Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Address = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if addr := os.Getenv("SMTP_ADDR"); addr != "" {
		options.SMTPAddr = addr
	}
	if from := os.Getenv("MAIL_FROM"); from != "" {
		options.MailFrom = from
	}

	envString(security.KeyHashAlgorithm, &options.HashAlgorithm)
	envString(security.KeySecretKey, &options.SecretKey)
	envString(security.KeyCostPepper, &options.Pepper)
	envInt(security.KeyCostTime, &options.CostTime)
	envInt(security.KeyCostMemoryKiB, &options.CostMemoryKiB)
	envInt(security.KeyCostParallelism, &options.CostParallelism)
	envInt(security.KeyCostHashLen, &options.CostHashLen)
	envInt(security.KeyCostSaltLen, &options.CostSaltLen)
	envInt(security.KeyPasswordMinLength, &options.PasswordMinLength)
	envInt(security.KeyResetTokenTTL, &options.ResetTokenTTLSeconds)
	envBool(security.KeyPasswordRequireUpper, &options.RequireUpper)
	envBool(security.KeyPasswordRequireLower, &options.RequireLower)
	envBool(security.KeyPasswordRequireDigit, &options.RequireDigit)
	envBool(security.KeyPasswordRequireSpec, &options.RequireSpecial)

	return options
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("error while parsing %s: %v", key, err)
	}
	*dst = n
}

func envBool(key string, dst **bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("error while parsing %s: %v", key, err)
	}
	*dst = &b
}

// GetString implements security.Settings.
func (o *Options) GetString(key, def string) string {
	var v string
	switch key {
	case security.KeyHashAlgorithm:
		v = o.HashAlgorithm
	case security.KeySecretKey:
		v = o.SecretKey
	case security.KeyCostPepper:
		v = o.Pepper
	}
	if v == "" {
		return def
	}
	return v
}

// GetInt implements security.Settings. A zero field counts as unset, which
// is safe here: every credential knob has a positive valid range.
func (o *Options) GetInt(key string, def int) int {
	var v int
	switch key {
	case security.KeyCostTime:
		v = o.CostTime
	case security.KeyCostMemoryKiB:
		v = o.CostMemoryKiB
	case security.KeyCostParallelism:
		v = o.CostParallelism
	case security.KeyCostHashLen:
		v = o.CostHashLen
	case security.KeyCostSaltLen:
		v = o.CostSaltLen
	case security.KeyPasswordMinLength:
		v = o.PasswordMinLength
	case security.KeyResetTokenTTL:
		v = o.ResetTokenTTLSeconds
	}
	if v == 0 {
		return def
	}
	return v
}

// GetBool implements security.Settings.
func (o *Options) GetBool(key string, def bool) bool {
	var v *bool
	switch key {
	case security.KeyPasswordRequireUpper:
		v = o.RequireUpper
	case security.KeyPasswordRequireLower:
		v = o.RequireLower
	case security.KeyPasswordRequireDigit:
		v = o.RequireDigit
	case security.KeyPasswordRequireSpec:
		v = o.RequireSpecial
	}
	if v == nil {
		return def
	}
	return *v
}
