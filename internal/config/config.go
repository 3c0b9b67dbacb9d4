// Package config provides functionality for managing configuration options
// for the console server and shell using command-line flags, a config file,
// a .env file and environment variables.
//
// Precedence, lowest first: defaults, config file, explicitly set flags,
// .env entries, process environment.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/atinyakov/CatalogAdmin/internal/logger"
)

// Options holds the configuration values for the application.
type Options struct {
	// Address is the server's listening address (ip:port).
	Address string `json:"address" yaml:"address"`

	// BaseURL is the external API origin.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// BasePath is the per-shop path segment of the product endpoints.
	BasePath string `json:"base_path" yaml:"base_path"`
	// AuthScheme prefixes the token in the Authorization header; empty sends it raw.
	AuthScheme string `json:"auth_scheme" yaml:"auth_scheme"`
	// APICA is an extra CA bundle trusted when calling the external API.
	APICA string `json:"api_ca" yaml:"api_ca"`
	// APICert and APIKey are a client certificate for APIs behind mutual TLS.
	APICert string `json:"api_cert" yaml:"api_cert"`
	APIKey  string `json:"api_key" yaml:"api_key"`
	// APITimeout bounds a single call to the external API.
	APITimeout Duration `json:"api_timeout" yaml:"api_timeout"`

	// DatabaseDSN selects PostgreSQL workspace storage; empty keeps workspaces in memory.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`
	// WorkspaceTTL is how long an untouched workspace is kept.
	WorkspaceTTL Duration `json:"workspace_ttl" yaml:"workspace_ttl"`
	// SessionSecret keys CSRF tokens and the shell's session file.
	SessionSecret string `json:"session_secret" yaml:"session_secret"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" yaml:"tls_cert"`
	TLSKey  string `json:"tls_key" yaml:"tls_key"`

	LogLevel string `json:"log_level" yaml:"log_level"`

	// SessionFile is where the shell keeps its encrypted session.
	SessionFile string `json:"session_file" yaml:"session_file"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
	// EnvFile is the path to the .env file.
	EnvFile string `json:"-" yaml:"-"`
}

// Duration is a time.Duration read from text such as "15s" or "24h".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler; JSON and YAML both use it.
func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

type stringValue struct{ p *string }

func (s stringValue) Set(v string) error { *s.p = v; return nil }

func (s stringValue) String() string {
	if s.p == nil {
		return ""
	}
	return *s.p
}

// key binds one option to its flag and environment names.
type key struct {
	flag  string
	env   []string
	usage string
	value func(o *Options) flag.Value
}

func str(f func(o *Options) *string) func(o *Options) flag.Value {
	return func(o *Options) flag.Value { return stringValue{f(o)} }
}

var keys = []key{
	{"a", []string{"SERVER_ADDRESS"}, "run on ip:port server", str(func(o *Options) *string { return &o.Address })},
	{"base-url", []string{"BASE_URL", "VITE_BASE_URL"}, "external API origin", str(func(o *Options) *string { return &o.BaseURL })},
	{"base-path", []string{"BASE_PATH", "VITE_BASE_PATH"}, "external API shop path", str(func(o *Options) *string { return &o.BasePath })},
	{"auth-scheme", []string{"AUTH_SCHEME"}, "Authorization header scheme (empty sends the raw token)", str(func(o *Options) *string { return &o.AuthScheme })},
	{"api-ca", []string{"API_CA"}, "extra CA bundle for the external API", str(func(o *Options) *string { return &o.APICA })},
	{"api-cert", []string{"API_CERT"}, "client certificate for the external API", str(func(o *Options) *string { return &o.APICert })},
	{"api-key", []string{"API_KEY"}, "client key for the external API", str(func(o *Options) *string { return &o.APIKey })},
	{"api-timeout", []string{"API_TIMEOUT"}, "timeout of one external API call", func(o *Options) flag.Value { return &o.APITimeout }},
	{"d", []string{"DATABASE_DSN"}, "db address (empty keeps workspaces in memory)", str(func(o *Options) *string { return &o.DatabaseDSN })},
	{"workspace-ttl", []string{"WORKSPACE_TTL"}, "lifetime of an untouched workspace", func(o *Options) flag.Value { return &o.WorkspaceTTL }},
	{"secret", []string{"SESSION_SECRET"}, "secret for CSRF tokens and the session file", str(func(o *Options) *string { return &o.SessionSecret })},
	{"tls-cert", []string{"TLS_CERT"}, "server TLS certificate", str(func(o *Options) *string { return &o.TLSCert })},
	{"tls-key", []string{"TLS_KEY"}, "server TLS key", str(func(o *Options) *string { return &o.TLSKey })},
	{"log-level", []string{"LOG_LEVEL"}, "log level", str(func(o *Options) *string { return &o.LogLevel })},
	{"session-file", []string{"SESSION_FILE"}, "shell session file", str(func(o *Options) *string { return &o.SessionFile })},
}

// Defaults returns the options used when nothing else is configured.
func Defaults() Options {
	return Options{
		Address:      "localhost:8080",
		APITimeout:   Duration(15 * time.Second),
		WorkspaceTTL: Duration(24 * time.Hour),
		LogLevel:     "info",
		Config:       "config.json",
		EnvFile:      ".env",
	}
}

// Parse reads the process flags and environment.
func Parse() (*Options, error) {
	return Load(os.Args[1:], os.Getenv)
}

// Load builds Options from args and getenv.
func Load(args []string, getenv func(string) string) (*Options, error) {
	opts := Defaults()

	fs := flag.NewFlagSet("catalogadmin", flag.ContinueOnError)
	for _, k := range keys {
		fs.Var(k.value(&opts), k.flag, k.usage)
	}
	fs.StringVar(&opts.Config, "config", opts.Config, "path to config file")
	fs.StringVar(&opts.Config, "c", opts.Config, "path to config file (shorthand)")
	fs.StringVar(&opts.EnvFile, "env", opts.EnvFile, "path to .env file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// CONFIG only picks the file when no -c/-config flag did.
	if p := getenv("CONFIG"); p != "" && !set["c"] && !set["config"] {
		opts.Config = p
	}
	if opts.Config != "" {
		file, err := readFile(opts.Config)
		if err != nil {
			return nil, err
		}
		if file != nil {
			merge(&opts, file, set)
		}
	}

	dotenv, err := readDotenv(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	lookup := func(name string) string {
		if v := getenv(name); v != "" {
			return v
		}
		return dotenv[name]
	}
	for _, k := range keys {
		for _, name := range k.env {
			v := lookup(name)
			if v == "" {
				continue
			}
			if err := k.value(&opts).Set(v); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			break
		}
	}

	return &opts, nil
}

// readFile loads a JSON or YAML config file. A missing file yields nil.
func readFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error while reading config file: %w", err)
	}

	var file Options
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("error while parsing config file: %w", err)
	}
	return &file, nil
}

// readDotenv parses a .env file without touching the process environment.
func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error while reading env file: %w", err)
	}
	return env, nil
}

// merge copies every option set in src into dst unless a flag set it.
func merge(dst, src *Options, flagged map[string]bool) {
	var zero Options
	for _, k := range keys {
		if flagged[k.flag] {
			continue
		}
		v := k.value(src).String()
		if v == k.value(&zero).String() {
			continue
		}
		_ = k.value(dst).Set(v)
	}
}

// Validate reports the first configuration problem that prevents talking to
// the external API.
func (o *Options) Validate() error {
	if o.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	u, err := url.Parse(o.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BASE_URL %q is not an http(s) origin", o.BaseURL)
	}
	if strings.Trim(o.BasePath, "/") == "" {
		return errors.New("BASE_PATH is required")
	}
	if o.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	if o.WorkspaceTTL <= 0 {
		return errors.New("WORKSPACE_TTL must be positive")
	}
	if (o.APICert == "") != (o.APIKey == "") {
		return errors.New("API_CERT and API_KEY must be set together")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("TLS_CERT and TLS_KEY must be set together")
	}
	if _, err := logger.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	return nil
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
