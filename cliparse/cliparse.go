package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type RateLimit struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type Config struct {
	Port           int       `koanf:"port"`
	DatabaseURL    string    `koanf:"database_url"`
	CreateSchema   bool      `koanf:"create_schema"`
	SupabaseURL    string    `koanf:"supabase_url"`
	ServiceRoleKey string    `koanf:"service_role_key"`
	AnonKey        string    `koanf:"anon_key"`
	JWTSecret      string    `koanf:"jwt_secret"`
	MediaBucket    string    `koanf:"media_bucket"`
	SkillsBucket   string    `koanf:"skills_bucket"`
	MockSupabase   bool      `koanf:"mock_supabase"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	LogLevel       string    `koanf:"log_level"`
	LogFormat      string    `koanf:"log_format"`
	RateLimit      RateLimit `koanf:"rate_limit"`
}

var (
	ErrDatabaseURL = errors.New("database URL required (use -d or DATABASE_URL env)")
	ErrSupabase    = errors.New("Missing SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY.")
)

// env var -> koanf path
var envKeys = map[string]string{
	"PORT":                      "port",
	"DATABASE_URL":              "database_url",
	"CREATE_SCHEMA":             "create_schema",
	"SUPABASE_URL":              "supabase_url",
	"SUPABASE_SERVICE_ROLE_KEY": "service_role_key",
	"SUPABASE_ANON_KEY":         "anon_key",
	"SUPABASE_JWT_SECRET":       "jwt_secret",
	"DRILLS_MEDIA_BUCKET":       "media_bucket",
	"SKILLS_MEDIA_BUCKET":       "skills_bucket",
	"MOCK_SUPABASE":             "mock_supabase",
	"ALLOWED_ORIGINS":           "allowed_origins",
	"LOG_LEVEL":                 "log_level",
	"LOG_FORMAT":                "log_format",
	"RATE_LIMIT_REQUESTS":       "rate_limit.requests",
	"RATE_LIMIT_WINDOW":         "rate_limit.window",
}

// flag name -> koanf path
var flagKeys = map[string]string{
	"p":             "port",
	"d":             "database_url",
	"supabase-url":  "supabase_url",
	"mock":          "mock_supabase",
	"create-schema": "create_schema",
}

func defaults() Config {
	return Config{
		Port:           3318,
		MediaBucket:    "drill-media",
		SkillsBucket:   "skill-media",
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		LogFormat:      "json",
		RateLimit:      RateLimit{Requests: 300, Window: time.Minute},
	}
}

// ParseFlags layers defaults, an optional YAML file, env and explicitly set flags, then validates
func ParseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("ankor-api", flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to a YAML config file")
	fs.Int("p", 0, "Server port")
	fs.String("d", "", "Database URL")
	fs.String("supabase-url", "", "Supabase project URL")
	fs.Bool("mock", false, "Run without Supabase credentials")
	fs.Bool("create-schema", false, "Create the reference schema on startup")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("ANKOR_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	// Only flags the user actually passed override env
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := k.Set(key, f.Value.String()); err != nil {
			flagErr = err
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}

	if raw, ok := k.Get("allowed_origins").(string); ok {
		if err := k.Set("allowed_origins", SplitList(raw)); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURL
	}
	if !c.MockSupabase && (c.SupabaseURL == "" || c.ServiceRoleKey == "") {
		return ErrSupabase
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// envKey maps known variables onto koanf paths; blank values count as unset
func envKey(name, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return envKeys[name], value
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
