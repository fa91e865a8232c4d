package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import source packages to ensure warehouses are registered via init()
	_ "github.com/leapstack-labs/leapexpose/internal/warehouse/duckdb"
	_ "github.com/leapstack-labs/leapexpose/internal/warehouse/postgres"
	_ "github.com/leapstack-labs/leapexpose/internal/warehouse/snowflake"
)

// isolate runs the test in an empty directory with no leapexpose or legacy
// variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{
		LegacyTokenNameEnv, LegacyTokenSecretEnv, LegacySiteEnv,
		"LEAPEXPOSE_TOKEN_NAME", "LEAPEXPOSE_TOKEN_SECRET", "LEAPEXPOSE_SITE",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	ResetConfig()
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultSite, cfg.Site)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 5, cfg.ScopePasses)
	assert.Equal(t, []string{"Developer Data Sources", "Data Engineering Prototypes"}, cfg.DatasourceProjects)
	assert.Len(t, cfg.WorkbookProjects, 5)
	assert.Nil(t, cfg.Warehouse)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileSearchedUpward(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "leapexpose.yaml"), `
site: analytics
scope_passes: 3
workbook_projects:
  - Finance
warehouse:
  type: duckdb
  path: deps.duckdb
  params:
    files:
      object_dependencies: deps.csv
`)
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "analytics", cfg.Site)
	assert.Equal(t, 3, cfg.ScopePasses)
	assert.Equal(t, []string{"Finance"}, cfg.WorkbookProjects)
	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
	assert.Equal(t, map[string]any{"object_dependencies": "deps.csv"}, cfg.Warehouse.Params["files"])
	assert.Contains(t, GetConfigFileUsed(), "leapexpose.yaml")
}

func TestLoadConfig_DotEnvAndLegacyVariables(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "PERSONAL_ACCESS_TOKEN_NAME=ci\nPERSONAL_ACCESS_TOKEN_SECRET=s3cret\nSITE_ID=legacy\n")
	t.Cleanup(func() {
		_ = os.Unsetenv(LegacyTokenNameEnv)
		_ = os.Unsetenv(LegacyTokenSecretEnv)
		_ = os.Unsetenv(LegacySiteEnv)
	})

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "ci", cfg.TokenName)
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, "legacy", cfg.Site)
	assert.NoError(t, cfg.ValidateCredentials())
	assert.Equal(t, filepath.Join(dir, ".env"), GetEnvFileUsed())
}

func TestLoadConfig_EnvOverridesLegacyAndFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "leapexpose.yml"), "token_name: from-file\n")
	t.Setenv(LegacyTokenNameEnv, "legacy")
	t.Setenv("LEAPEXPOSE_TOKEN_NAME", "modern")
	t.Setenv("LEAPEXPOSE_DATASOURCE_PROJECTS", "Ops, Finance ,")
	t.Setenv("LEAPEXPOSE_WAREHOUSE_TYPE", "postgres")
	t.Setenv("LEAPEXPOSE_WAREHOUSE_DATABASE", "lineage")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "modern", cfg.TokenName)
	assert.Equal(t, []string{"Ops", "Finance"}, cfg.DatasourceProjects)
	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
	assert.Equal(t, "lineage", cfg.Warehouse.Database)
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "leapexpose.yaml"), "output: from-file.yml\nformat: yaml\n")
	t.Setenv("LEAPEXPOSE_OUTPUT", "from-env.yml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "")
	flags.String("format", "", "")
	flags.Int("scope-passes", 0, "")
	flags.StringSlice("workbook-project", nil, "")
	flags.String("warehouse", "", "")
	flags.String("dump-rows", "", "")
	require.NoError(t, flags.Parse([]string{
		"-o", "from-flag.json", "--format", "json",
		"--workbook-project", "Ops", "--workbook-project", "Dev",
		"--warehouse", "snowflake",
	}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.json", cfg.Output)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 5, cfg.ScopePasses, "unchanged flags must not override")
	assert.Equal(t, []string{"Ops", "Dev"}, cfg.WorkbookProjects)
	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "snowflake", cfg.Warehouse.Type)
	assert.Empty(t, cfg.DumpRows)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "custom.yaml")
	writeFile(t, path, "base_url: https://bi.example.com/#/site/x/\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://bi.example.com/#/site/x/", cfg.BaseURL)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_ExpandsSecrets(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "leapexpose.yaml"), `
token_secret: ${TABLEAU_SECRET}
warehouse:
  type: snowflake
  password: ${SF_PASSWORD}
  user: ${UNSET_VARIABLE_FOR_TEST}
`)
	t.Setenv("TABLEAU_SECRET", "pat")
	t.Setenv("SF_PASSWORD", "pw")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "pat", cfg.TokenSecret)
	assert.Equal(t, "pw", cfg.Warehouse.Password)
	assert.Equal(t, "${UNSET_VARIABLE_FOR_TEST}", cfg.Warehouse.User)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown warehouse", "warehouse:\n  type: oracle\n", "unknown warehouse type"},
		{"bad format", "format: toml\n", "toml"},
		{"bad passes", "scope_passes: 0\n", "scope_passes"},
		{"bad server", "server_url: not a url\n", "server_url"},
		{"bad timeout", "timeout: soon\n", "invalid timeout"},
		{"malformed yaml", "site: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeFile(t, filepath.Join(dir, "leapexpose.yaml"), tt.content)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	err := (&Config{TokenName: "ci"}).ValidateCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), LegacyTokenSecretEnv)
}

func TestClassifier(t *testing.T) {
	cfg := &Config{}
	cl := cfg.Classifier()
	assert.Equal(t, []string{"prod_reporting", "prod_integration"}, cl.RefDatabases)
	assert.Equal(t, "prod_raw", cl.SourceDatabase)

	cfg = &Config{RefDatabases: []string{"analytics"}, SourceDatabase: "raw"}
	cl = cfg.Classifier()
	assert.Equal(t, []string{"analytics"}, cl.RefDatabases)
	assert.Equal(t, "raw", cl.SourceDatabase)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "fallback logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "token_name", envKey("LEAPEXPOSE_TOKEN_NAME"))
	assert.Equal(t, "warehouse.type", envKey("LEAPEXPOSE_WAREHOUSE_TYPE"))
	assert.Equal(t, "warehouse.password", envKey("LEAPEXPOSE_WAREHOUSE_PASSWORD"))
}
