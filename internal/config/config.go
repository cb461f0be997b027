package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/tracing"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultAPIKey is the insecure fallback secret. Deployments must override it.
const DefaultAPIKey = "change-me-to-something-secret"

type AgentConfig struct {
	Binary string `mapstructure:"binary"`

	// Args default to --dangerously-skip-permissions whatever the binary.
	// Set an empty list to launch the binary with no arguments. The env
	// form is comma separated.
	Args []string `mapstructure:"args"`

	WorkDir    string        `mapstructure:"work_dir"`
	ScratchDir string        `mapstructure:"scratch_dir"`
	Timeout    time.Duration `mapstructure:"timeout"`
	EchoOutput bool          `mapstructure:"echo_output"`

	// CleanupAlertThreshold is the number of consecutive scratch cleanup
	// failures that escalate from a warning to an error log.
	CleanupAlertThreshold int `mapstructure:"cleanup_alert_threshold"`
}

type HTTPConfig struct {
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Zero waits long enough for
	// an in-flight agent run to finish.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config is the process configuration. It is built once at startup and
// passed by value to the components that need it.
type Config struct {
	APIKey      string         `mapstructure:"api_key"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	ServiceName string         `mapstructure:"service_name"`
	Agent       AgentConfig    `mapstructure:"agent"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Tracing     tracing.Config `mapstructure:"tracing"`
}

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an optional YAML file. Falls back to $BRIDGE_CONFIG.
	ConfigFile string
	// DotEnvFile is loaded into the environment for variables not already
	// set. Missing files are ignored.
	DotEnvFile string
	// Flags, when set, override every other source for the flags it defines.
	Flags *pflag.FlagSet
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"api_key":               "BRIDGE_API_KEY",
	"port":                  "PORT",
	"host":                  "BRIDGE_HOST",
	"service_name":          "BRIDGE_SERVICE_NAME",
	"agent.binary":          "BRIDGE_AGENT_BINARY",
	"agent.args":            "BRIDGE_AGENT_ARGS",
	"agent.work_dir":        "BRIDGE_AGENT_WORK_DIR",
	"agent.scratch_dir":     "BRIDGE_SCRATCH_DIR",
	"agent.timeout":         "BRIDGE_AGENT_TIMEOUT",
	"agent.echo_output":     "BRIDGE_AGENT_ECHO_OUTPUT",
	"logging.level":         "LOG_LEVEL",
	"logging.format":        "LOG_FORMAT",
	"metrics.enabled":       "BRIDGE_METRICS_ENABLED",
	"tracing.enabled":       "OTEL_TRACING_ENABLED",
	"tracing.otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// flagBindings maps config keys to command line flag names.
var flagBindings = map[string]string{
	"port":          "port",
	"host":          "host",
	"logging.level": "log-level",
	"agent.binary":  "agent-binary",
	"agent.timeout": "agent-timeout",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", DefaultAPIKey)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3456)
	v.SetDefault("service_name", "claude-n8n-bridge")

	v.SetDefault("agent.binary", "claude")
	v.SetDefault("agent.args", []string{"--dangerously-skip-permissions"})
	v.SetDefault("agent.work_dir", "")
	v.SetDefault("agent.scratch_dir", "")
	v.SetDefault("agent.timeout", 10*time.Minute)
	v.SetDefault("agent.echo_output", true)
	v.SetDefault("agent.cleanup_alert_threshold", 3)

	v.SetDefault("http.max_body_bytes", int64(10<<20))
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", time.Duration(0))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "claude-n8n-bridge")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
}

// Load resolves configuration from defaults, an optional YAML file, a .env
// file, the process environment and flags, in increasing precedence.
func Load(opts Options) (Config, error) {
	if err := loadDotEnv(opts.DotEnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	cfgPath := opts.ConfigFile
	if cfgPath == "" {
		cfgPath = os.Getenv("BRIDGE_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range flagBindings {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// loadDotEnv exports the entries of a KEY=VALUE file that are not already
// present in the environment.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.Agent.Binary) == "" {
		return errors.New("agent.binary must not be empty")
	}
	if c.Agent.Timeout <= 0 {
		return fmt.Errorf("agent.timeout must be positive, got %s", c.Agent.Timeout)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.HTTP.ShutdownTimeout < 0 {
		return fmt.Errorf("http.shutdown_timeout must not be negative, got %s", c.HTTP.ShutdownTimeout)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// UsesDefaultAPIKey reports whether the insecure fallback secret is active.
func (c Config) UsesDefaultAPIKey() bool {
	return c.APIKey == DefaultAPIKey
}

// ShutdownGrace is how long shutdown waits for in-flight requests.
func (c Config) ShutdownGrace() time.Duration {
	if c.HTTP.ShutdownTimeout > 0 {
		return c.HTTP.ShutdownTimeout
	}
	return c.Agent.Timeout + 30*time.Second
}

// WriteTimeout leaves room for a full agent run plus the response.
func (c Config) WriteTimeout() time.Duration {
	return c.Agent.Timeout + 30*time.Second
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
