package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every bound variable for the duration of the test.
// Empty values are ignored by viper, so this is equivalent to unsetting.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
	t.Setenv("BRIDGE_CONFIG", "")
}

// unsetEnv removes name and restores it after the test.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIKey, c.APIKey)
	assert.True(t, c.UsesDefaultAPIKey())
	assert.Equal(t, 3456, c.Port)
	assert.Equal(t, "0.0.0.0:3456", c.Addr())
	assert.Equal(t, "claude-n8n-bridge", c.ServiceName)
	assert.Equal(t, "claude", c.Agent.Binary)
	assert.Equal(t, []string{"--dangerously-skip-permissions"}, c.Agent.Args)
	assert.Equal(t, 10*time.Minute, c.Agent.Timeout)
	assert.True(t, c.Agent.EchoOutput)
	assert.Equal(t, int64(10<<20), c.HTTP.MaxBodyBytes)
	assert.Equal(t, "info", c.Logging.Level)
	assert.True(t, c.Metrics.Enabled)
	assert.False(t, c.Tracing.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRIDGE_API_KEY", "real-secret")
	t.Setenv("PORT", "8080")
	t.Setenv("BRIDGE_AGENT_TIMEOUT", "2s")
	t.Setenv("BRIDGE_AGENT_BINARY", "/usr/local/bin/claude")
	t.Setenv("BRIDGE_AGENT_ECHO_OUTPUT", "false")

	c, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "real-secret", c.APIKey)
	assert.False(t, c.UsesDefaultAPIKey())
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, 2*time.Second, c.Agent.Timeout)
	assert.Equal(t, "/usr/local/bin/claude", c.Agent.Binary)
	assert.False(t, c.Agent.EchoOutput)
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_key: from-file
port: 4000
agent:
  timeout: 90s
  scratch_dir: /var/tmp/bridge
logging:
  format: console
`), 0o600))
	t.Setenv("PORT", "5000")

	c, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "from-file", c.APIKey)
	assert.Equal(t, 5000, c.Port, "environment beats the config file")
	assert.Equal(t, 90*time.Second, c.Agent.Timeout)
	assert.Equal(t, "/var/tmp/bridge", c.Agent.ScratchDir)
	assert.Equal(t, "console", c.Logging.Format)
}

func TestLoad_AgentArgs(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRIDGE_AGENT_BINARY", "/opt/agent/bin/claude")

	c, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"--dangerously-skip-permissions"}, c.Agent.Args, "default args do not depend on the binary")

	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  binary: my-agent\n  args: []\n"), 0o600))
	clearEnv(t)

	c, err = Load(Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "my-agent", c.Agent.Binary)
	assert.NotNil(t, c.Agent.Args)
	assert.Empty(t, c.Agent.Args)

	t.Setenv("BRIDGE_AGENT_ARGS", "--print,--verbose")
	c, err = Load(Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"--print", "--verbose"}, c.Agent.Args)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoad_DotEnvFillsOnlyUnsetVariables(t *testing.T) {
	clearEnv(t)
	unsetEnv(t, "BRIDGE_SERVICE_NAME")
	t.Setenv("BRIDGE_API_KEY", "from-process")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BRIDGE_API_KEY=from-dotenv\nBRIDGE_SERVICE_NAME=dotenv-bridge\n"), 0o600))

	c, err := Load(Options{DotEnvFile: path})
	require.NoError(t, err)

	assert.Equal(t, "from-process", c.APIKey)
	assert.Equal(t, "dotenv-bridge", c.ServiceName)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(Options{DotEnvFile: filepath.Join(t.TempDir(), ".env")})
	assert.NoError(t, err)
}

func TestLoad_FlagsWin(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 3456, "")
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"--port", "9999", "--log-level", "debug"}))

	c, err := Load(Options{Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, 9999, c.Port)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestShutdownGrace(t *testing.T) {
	c := Config{Agent: AgentConfig{Timeout: time.Minute}}
	assert.Equal(t, 90*time.Second, c.ShutdownGrace(), "zero waits for a full agent run")

	c.HTTP.ShutdownTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, c.ShutdownGrace())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			APIKey:  "k",
			Port:    3456,
			Agent:   AgentConfig{Binary: "claude", Timeout: time.Minute},
			HTTP:    HTTPConfig{MaxBodyBytes: 1},
			Logging: LoggingConfig{Format: "json"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty api key", func(c *Config) { c.APIKey = "" }},
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"blank binary", func(c *Config) { c.Agent.Binary = "  " }},
		{"zero timeout", func(c *Config) { c.Agent.Timeout = 0 }},
		{"zero body limit", func(c *Config) { c.HTTP.MaxBodyBytes = 0 }},
		{"negative shutdown", func(c *Config) { c.HTTP.ShutdownTimeout = -time.Second }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
