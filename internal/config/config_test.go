package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func ptr[T any](v T) *T { return &v }

func TestLoad_UsesDefaults_When_NothingSet(t *testing.T) {
	t.Parallel()

	cfg, err := Load(envFrom(nil), Flags{ConfigFile: writeConfig(t, "")})
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.False(t, cfg.NoColor)
	assert.Equal(t, SourceDefault, cfg.Sources["provider"])
	assert.Empty(t, cfg.APIKey)
}

func TestLoad_PriorityOrder(t *testing.T) {
	t.Parallel()

	file := writeConfig(t, `
provider: openai
model: file-model
theme: orca
timeout: 30s
max_iterations: 5
search:
  serper_api_key: file-serper
`)

	tests := []struct {
		name       string
		env        map[string]string
		flags      Flags
		wantModel  string
		wantSource string
	}{
		{name: "file beats default", wantModel: "file-model", wantSource: SourceFile},
		{name: "env beats file", env: map[string]string{"RECOMMENDER_MODEL": "env-model"}, wantModel: "env-model", wantSource: SourceEnv},
		{
			name:       "cli beats env",
			env:        map[string]string{"RECOMMENDER_MODEL": "env-model"},
			flags:      Flags{Model: ptr("cli-model")},
			wantModel:  "cli-model",
			wantSource: SourceCLI,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flags := tt.flags
			flags.ConfigFile = file
			cfg, err := Load(envFrom(tt.env), flags)
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, cfg.Model)
			assert.Equal(t, tt.wantSource, cfg.Sources["model"])

			assert.Equal(t, "openai", cfg.Provider)
			assert.Equal(t, 30*time.Second, cfg.Timeout)
			assert.Equal(t, 5, cfg.MaxIterations)
			assert.Equal(t, "orca", cfg.Theme)
			assert.Equal(t, "file-serper", cfg.Search.SerperAPIKey)
			assert.Equal(t, file, cfg.Path)
		})
	}
}

func TestLoad_ReadsKeyForSelectedProvider(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"GROQ_API_KEY":         "groq-key",
		"GEMINI_API_KEY":       "gemini-key",
		"RECOMMENDER_PROVIDER": "Gemini",
		"TAVILY_API_KEY":       "tavily-key",
	}
	cfg, err := Load(envFrom(env), Flags{ConfigFile: writeConfig(t, "api_key: from-file\n")})
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-key", cfg.APIKey)
	assert.Equal(t, "GEMINI_API_KEY", cfg.APIKeyEnv())
	assert.Equal(t, "tavily-key", cfg.Search.TavilyAPIKey)

	cfg, err = Load(envFrom(nil), Flags{ConfigFile: writeConfig(t, "api_key: from-file\n")})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
}

func TestLoad_NoColorAndDebugFromEnv(t *testing.T) {
	t.Parallel()

	cfg, err := Load(envFrom(map[string]string{"NO_COLOR": "1", "RECOMMENDER_DEBUG": "true"}), Flags{ConfigFile: writeConfig(t, "")})
	require.NoError(t, err)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Debug)

	cfg, err = Load(envFrom(map[string]string{"NO_COLOR": "1", "RECOMMENDER_DEBUG": "maybe"}),
		Flags{ConfigFile: writeConfig(t, ""), NoColor: ptr(false)})
	require.NoError(t, err)
	assert.False(t, cfg.NoColor, "flag overrides NO_COLOR")
	assert.False(t, cfg.Debug, "unparseable bool is ignored")
	assert.Equal(t, SourceCLI, cfg.Sources["no_color"])
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	_, err := Load(envFrom(nil), Flags{ConfigFile: writeConfig(t, "provider: cohere\nmax_iterations: 0\n")})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `unknown provider "cohere"`)
	assert.Contains(t, err.Error(), "max_iterations")

	_, err = Load(envFrom(nil), Flags{ConfigFile: writeConfig(t, "provider: [unclosed\n")})
	assert.ErrorContains(t, err, "parsing config file")

	_, err = Load(envFrom(nil), Flags{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "reading config file")
}

func TestUseDuckDuckGo(t *testing.T) {
	t.Parallel()

	c := Defaults()
	assert.True(t, c.UseDuckDuckGo(), "keyless fallback when no keys")

	c.Search.SerperAPIKey = "k"
	assert.False(t, c.UseDuckDuckGo())

	c.Search.DuckDuckGo = ptr(true)
	assert.True(t, c.UseDuckDuckGo())
}

func TestFindConfigPath_ReturnsLocalConfig_When_FileExists(t *testing.T) {
	tempDir := t.TempDir()
	t.Chdir(tempDir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Equal(t, "", findConfigPath())

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, FileName), []byte("theme: mono\n"), 0o600))
	assert.Equal(t, FileName, findConfigPath())
}
