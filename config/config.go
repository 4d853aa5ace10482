package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the engine.
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Storage StorageConfig `mapstructure:"storage"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`
}

// LLMConfig contains the completion provider settings. APIKeys is the
// rotating credential pool; FallbackAPIKey is used when the pool is empty.
type LLMConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout"`
	APIKeys        []string      `mapstructure:"api_keys"`
	FallbackAPIKey string        `mapstructure:"fallback_api_key"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.BaseURL) == "" {
		return fmt.Errorf("llm.base_url required")
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be > 0")
	}
	return nil
}

// StorageConfig contains storage settings.
type StorageConfig struct {
	File  FileConfig  `mapstructure:"file"`
	Redis RedisConfig `mapstructure:"redis"`
}

// FileConfig contains upload storage settings.
type FileConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// RedisConfig contains Redis connection settings. When Host is empty the
// engine keeps its document registry in process memory.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// LoadConfig loads config from file (optional) and environment (NEURAL_*).
func LoadConfig(path string) (*Config, error) {
	// .env first so viper's AutomaticEnv sees it
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.listen", ":8000")
	v.SetDefault("general.debug", false)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama3-70b-8192")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("storage.file.data_dir", "temp_uploads")
	v.SetDefault("storage.redis.db", 0)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("NEURAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A config file is optional; the engine runs on defaults + env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.LLM.APIKeys = append(cfg.LLM.APIKeys, credentialsFromEnv()...)
	if cfg.LLM.FallbackAPIKey == "" {
		cfg.LLM.FallbackAPIKey = os.Getenv("NEURAL_LLM_FALLBACK_API_KEY")
	}

	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// credentialsFromEnv collects NEURAL_LLM_API_KEYS (comma-separated) and the
// numbered NEURAL_LLM_API_KEY_1..9 variables, in order, skipping blanks.
func credentialsFromEnv() []string {
	var keys []string
	if raw := os.Getenv("NEURAL_LLM_API_KEYS"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	for i := 1; i <= 9; i++ {
		if k := os.Getenv(fmt.Sprintf("NEURAL_LLM_API_KEY_%d", i)); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
