package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the retriever API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Local     LocalConfig     `yaml:"local"`
	Fusion    FusionConfig    `yaml:"fusion"`
	Boost     BoostConfig     `yaml:"boost"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings for remote retrieval.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Index            string   `yaml:"index"` // full-text/vector index name
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RetrievalConfig holds settings shared by both retrieval modes.
type RetrievalConfig struct {
	Mode               string       `yaml:"mode"` // local, remote (default: local)
	DefaultK           int          `yaml:"default_k"`
	MaxK               int          `yaml:"max_k"`
	SubQueryTimeoutSec int          `yaml:"sub_query_timeout_sec"`
	Tiers              []TierConfig `yaml:"tiers"` // empty = built-in ladder
}

// TierConfig overrides one rung of the adaptive threshold ladder.
type TierConfig struct {
	Name      string  `yaml:"name"`
	Threshold float64 `yaml:"threshold"`
}

// LocalConfig holds settings for the in-process index scanner.
type LocalConfig struct {
	IndexDir    string  `yaml:"index_dir"`
	PoolSize    int     `yaml:"pool_size"` // 0 = number of CPUs
	Decay       float64 `yaml:"decay"`
	BoostFactor float64 `yaml:"boost_factor"`
}

// FusionConfig holds rank-fusion settings for remote retrieval.
type FusionConfig struct {
	Alpha              float64 `yaml:"alpha"` // vector weight, 0..1
	RRFK               int     `yaml:"rrf_k"`
	Calibration        float64 `yaml:"calibration"`
	MinScore           float64 `yaml:"min_score"`
	DiversityThreshold float64 `yaml:"diversity_threshold"`
}

// BoostConfig holds post-fusion score boosting settings.
type BoostConfig struct {
	QualityMax float64 `yaml:"quality_max"`
	Breed      float64 `yaml:"breed"`
	Disease    float64 `yaml:"disease"`
	Medication float64 `yaml:"medication"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.Index == "" {
		c.Database.Index = "retriever:kb:idx"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Retrieval.Mode == "" {
		c.Retrieval.Mode = "local"
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 5
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 50
	}
	if c.Retrieval.SubQueryTimeoutSec <= 0 {
		c.Retrieval.SubQueryTimeoutSec = 2
	}
	if c.Local.IndexDir == "" {
		c.Local.IndexDir = "data/index"
	}
	if c.Local.PoolSize <= 0 {
		c.Local.PoolSize = runtime.NumCPU()
	}
	if c.Local.Decay <= 0 {
		c.Local.Decay = 1.0
	}
	if c.Local.BoostFactor <= 0 {
		c.Local.BoostFactor = 0.5
	}
	if c.Fusion.Alpha <= 0 {
		c.Fusion.Alpha = 0.5
	}
	if c.Fusion.RRFK <= 0 {
		c.Fusion.RRFK = 60
	}
	if c.Fusion.Calibration <= 0 {
		c.Fusion.Calibration = 30.0
	}
	if c.Fusion.DiversityThreshold <= 0 {
		c.Fusion.DiversityThreshold = 0.7
	}
	if c.Boost.QualityMax <= 0 {
		c.Boost.QualityMax = 0.2
	}
	if c.Boost.Breed <= 0 {
		c.Boost.Breed = 1.3
	}
	if c.Boost.Disease <= 0 {
		c.Boost.Disease = 1.25
	}
	if c.Boost.Medication <= 0 {
		c.Boost.Medication = 1.2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Retrieval.Mode {
	case "local", "remote":
		// ok
	default:
		return fmt.Errorf("retrieval.mode must be \"local\" or \"remote\", got %q", c.Retrieval.Mode)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Retrieval.Mode == "remote" && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required in remote mode")
	}
	if c.Retrieval.DefaultK > c.Retrieval.MaxK {
		return fmt.Errorf("retrieval.default_k (%d) must not exceed retrieval.max_k (%d)",
			c.Retrieval.DefaultK, c.Retrieval.MaxK)
	}
	for i, t := range c.Retrieval.Tiers {
		if t.Name == "" {
			return fmt.Errorf("retrieval.tiers[%d].name is required", i)
		}
		if t.Threshold < 0 || t.Threshold > 1 {
			return fmt.Errorf("retrieval.tiers[%d].threshold must be between 0 and 1, got %v", i, t.Threshold)
		}
		if i > 0 && t.Threshold >= c.Retrieval.Tiers[i-1].Threshold {
			return fmt.Errorf("retrieval.tiers thresholds must be strictly decreasing, got %v after %v",
				t.Threshold, c.Retrieval.Tiers[i-1].Threshold)
		}
	}
	if c.Fusion.Alpha < 0 || c.Fusion.Alpha > 1 {
		return fmt.Errorf("fusion.alpha must be between 0 and 1, got %v", c.Fusion.Alpha)
	}
	if c.Fusion.DiversityThreshold < 0 || c.Fusion.DiversityThreshold > 1 {
		return fmt.Errorf("fusion.diversity_threshold must be between 0 and 1, got %v", c.Fusion.DiversityThreshold)
	}
	for name, v := range c.Embedding.Vectorizers {
		if v.Provider == "" {
			return fmt.Errorf("embedding.vectorizers.%s.provider is required", name)
		}
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s references unknown provider %q", name, v.Provider)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
