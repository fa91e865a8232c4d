package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapexpose/internal/pipeline"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix is the prefix of environment overrides.
const envPrefix = "LEAPEXPOSE_"

var configNames = []string{"leapexpose.yaml", "leapexpose.yml"}

// listKeys hold comma-separated lists when set from the environment.
var listKeys = map[string]bool{
	"datasource_projects": true,
	"workbook_projects":   true,
	"ref_databases":       true,
}

// flagKeys maps flag names whose config key is not the snake_case name.
var flagKeys = map[string]string{
	"datasource-project": "datasource_projects",
	"workbook-project":   "workbook_projects",
	"ref-database":       "ref_databases",
	"warehouse":          "warehouse.type",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	envFileUsed    string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn checks if a leapexpose config file exists in the directory.
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	envFileUsed = ""
	currentConfig = nil
}

// defaults returns the lowest-priority configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"server_url":          DefaultServerURL,
		"site":                DefaultSite,
		"rate_limit":          DefaultRateLimit,
		"timeout":             DefaultTimeout,
		"scope_passes":        DefaultScopePasses,
		"datasource_projects": pipeline.DefaultDatasourceProjects,
		"workbook_projects":   pipeline.DefaultWorkbookProjects,
		"output":              DefaultOutput,
		"format":              DefaultFormat,
		"source_database":     DefaultSourceDatabase,
		"display":             DefaultDisplay,
		"verbose":             false,
	}
}

// legacyEnv maps the original credential variables onto config keys.
func legacyEnv() map[string]any {
	m := make(map[string]any)
	for envName, key := range map[string]string{
		LegacyTokenNameEnv:   "token_name",
		LegacyTokenSecretEnv: "token_secret",
		LegacySiteEnv:        "site",
	} {
		if v := os.Getenv(envName); v != "" {
			m[key] = v
		}
	}
	return m
}

// envKey transforms LEAPEXPOSE_WAREHOUSE_TYPE -> warehouse.type and
// LEAPEXPOSE_TOKEN_NAME -> token_name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(key, "warehouse_"); ok {
		return "warehouse." + rest
	}
	return key
}

// LoadConfig loads configuration from file, .env, environment variables,
// and flags.
// Precedence (highest to lowest): flags > env vars > .env > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	envFileUsed = ""

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = findConfigUpward(cwd)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load .env next to the config file (or in CWD). Existing
	// environment variables are never overwritten.
	projectRoot := cwd
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}
	if dotenv := filepath.Join(projectRoot, ".env"); fileExists(dotenv) {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", dotenv, err)
		}
		envFileUsed = dotenv
	}

	// 4. Legacy credential variables, then LEAPEXPOSE_ variables
	if err := k.Load(confmap.Provider(legacyEnv(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy env vars: %w", err)
	}
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(s, v string) (string, interface{}) {
		key := envKey(s)
		if listKeys[key] {
			return key, splitList(v)
		}
		return key, v
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			// Transform kebab-case to snake_case for config keys
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	expandSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetEnvFileUsed returns the path to the .env file that was loaded, if any.
func GetEnvFileUsed() string {
	return envFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandSecrets expands environment variables in credential fields.
func expandSecrets(c *Config) {
	c.TokenName = expandEnvVars(c.TokenName)
	c.TokenSecret = expandEnvVars(c.TokenSecret)
	if w := c.Warehouse; w != nil {
		w.Account = expandEnvVars(w.Account)
		w.User = expandEnvVars(w.User)
		w.Password = expandEnvVars(w.Password)
		w.Host = expandEnvVars(w.Host)
		w.Database = expandEnvVars(w.Database)
		for key, v := range w.Options {
			w.Options[key] = expandEnvVars(v)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
