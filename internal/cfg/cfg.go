package cfg

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"exoplanet-classifier/internal/common"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelsDir         string
	DataPath          string
	Runtime           string
	RemoteURL         string
	InferenceTimeout  time.Duration
	RemoteMaxRetries  int
	RemoteRPS         float64
	PythonPath        string
	ListenPort        int
	RequestsPerSecond float64
	RequestBurst      int
	DelayMin          time.Duration
	DelayMax          time.Duration
	LogLevel          string
}

type ConfigFile struct {
	Models struct {
		Dir string `yaml:"dir"`
	} `yaml:"models"`

	Inference struct {
		Runtime           string  `yaml:"runtime"`
		URL               string  `yaml:"url"`
		Timeout           string  `yaml:"timeout"`
		MaxRetries        *int    `yaml:"maxRetries"`
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		PythonPath        string  `yaml:"pythonPath"`
	} `yaml:"inference"`

	Server struct {
		Port              int     `yaml:"port"`
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`
		DelayMin          string  `yaml:"delayMin"`
		DelayMax          string  `yaml:"delayMax"`
	} `yaml:"server"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	maxRetries := common.DefaultRemoteMaxRetries
	if config.Inference.MaxRetries != nil {
		maxRetries = *config.Inference.MaxRetries
	}

	// Override with environment variables if they exist
	settings := Settings{
		ModelsDir:         getEnvOrDefault(common.EnvModelsDir, orString(config.Models.Dir, common.DefaultModelsDir)),
		DataPath:          getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		Runtime:           strings.ToLower(getEnvOrDefault(common.EnvRuntime, orString(config.Inference.Runtime, common.DefaultRuntime))),
		RemoteURL:         getEnvOrDefault(common.EnvRemoteURL, orString(config.Inference.URL, common.DefaultRemoteURL)),
		InferenceTimeout:  getDurationOrDefault(common.EnvInferenceTimeout, parseDuration(config.Inference.Timeout, common.DefaultInferenceTimeout)),
		RemoteMaxRetries:  getIntOrDefault(common.EnvRemoteMaxRetries, maxRetries),
		RemoteRPS:         getFloatFromEnvOrConfig(common.EnvRemoteRPS, config.Inference.RequestsPerSecond, common.DefaultRemoteRPS),
		PythonPath:        getEnvOrDefault(common.EnvPythonPath, config.Inference.PythonPath),
		ListenPort:        getIntFromEnvOrConfig(common.EnvListenPort, config.Server.Port, common.DefaultListenPort),
		RequestsPerSecond: getFloatFromEnvOrConfig(common.EnvRequestsPerSecond, config.Server.RequestsPerSecond, common.DefaultRequestsPerSecond),
		RequestBurst:      getIntFromEnvOrConfig(common.EnvRequestBurst, config.Server.Burst, common.DefaultRequestBurst),
		DelayMin:          getDurationOrDefault(common.EnvDelayMin, parseDuration(config.Server.DelayMin, common.DefaultDelayMin)),
		DelayMax:          getDurationOrDefault(common.EnvDelayMax, parseDuration(config.Server.DelayMax, common.DefaultDelayMax)),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelsDir:         getEnvOrDefault(common.EnvModelsDir, common.DefaultModelsDir),
		DataPath:          os.Getenv(common.EnvDataPath), // optional
		Runtime:           strings.ToLower(getEnvOrDefault(common.EnvRuntime, common.DefaultRuntime)),
		RemoteURL:         getEnvOrDefault(common.EnvRemoteURL, common.DefaultRemoteURL),
		InferenceTimeout:  getDurationOrDefault(common.EnvInferenceTimeout, common.DefaultInferenceTimeout),
		RemoteMaxRetries:  getIntOrDefault(common.EnvRemoteMaxRetries, common.DefaultRemoteMaxRetries),
		RemoteRPS:         getFloatOrDefault(common.EnvRemoteRPS, common.DefaultRemoteRPS),
		PythonPath:        os.Getenv(common.EnvPythonPath), // optional, discovered on PATH otherwise
		ListenPort:        getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		RequestsPerSecond: getFloatOrDefault(common.EnvRequestsPerSecond, common.DefaultRequestsPerSecond),
		RequestBurst:      getIntOrDefault(common.EnvRequestBurst, common.DefaultRequestBurst),
		DelayMin:          getDurationOrDefault(common.EnvDelayMin, common.DefaultDelayMin),
		DelayMax:          getDurationOrDefault(common.EnvDelayMax, common.DefaultDelayMax),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Level returns the zerolog level for LogLevel, defaulting to info.
func (s *Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil || s.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orString(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func parseDuration(v string, defaultValue time.Duration) time.Duration {
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}

	// Validate runtime selection
	switch settings.Runtime {
	case common.RuntimeNone, common.RuntimeONNX:
	case common.RuntimeRemote:
		if settings.RemoteURL == "" {
			return errors.New(common.ErrMsgRemoteURL)
		}
	default:
		return fmt.Errorf("%s %q (want %s, %s or %s)", common.ErrMsgUnknownRuntime,
			settings.Runtime, common.RuntimeNone, common.RuntimeONNX, common.RuntimeRemote)
	}

	// Validate time durations
	if settings.InferenceTimeout < 100*time.Millisecond || settings.InferenceTimeout > 5*time.Minute {
		return fmt.Errorf("inference timeout must be between 100ms and 5m, got %v", settings.InferenceTimeout)
	}
	if settings.DelayMin < 0 || settings.DelayMin > common.MaxDelay {
		return fmt.Errorf("minimum delay must be between 0 and %v, got %v", common.MaxDelay, settings.DelayMin)
	}
	if settings.DelayMax < 0 || settings.DelayMax > common.MaxDelay {
		return fmt.Errorf("maximum delay must be between 0 and %v, got %v", common.MaxDelay, settings.DelayMax)
	}
	if settings.DelayMin > settings.DelayMax {
		return fmt.Errorf("minimum delay %v exceeds maximum delay %v", settings.DelayMin, settings.DelayMax)
	}

	// Validate integer values
	if settings.RemoteMaxRetries < 0 || settings.RemoteMaxRetries > common.MaxRemoteRetry {
		return fmt.Errorf("inference max retries must be between 0 and %d, got %d", common.MaxRemoteRetry, settings.RemoteMaxRetries)
	}
	if settings.ListenPort < common.MinListenPort || settings.ListenPort > common.MaxListenPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinListenPort, common.MaxListenPort, settings.ListenPort)
	}
	if settings.RequestBurst <= 0 || settings.RequestBurst > common.MaxRequestBurst {
		return fmt.Errorf("request burst must be between 1 and %d, got %d", common.MaxRequestBurst, settings.RequestBurst)
	}

	// Validate rates
	if settings.RequestsPerSecond <= 0 || settings.RequestsPerSecond > 10000 {
		return fmt.Errorf("requests per second must be between 0 and 10000, got %f", settings.RequestsPerSecond)
	}
	if settings.RemoteRPS <= 0 || settings.RemoteRPS > 10000 {
		return fmt.Errorf("inference requests per second must be between 0 and 10000, got %f", settings.RemoteRPS)
	}

	// Validate log level
	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}
