// Package config loads runtime configuration from famulus.yaml and the
// environment. Every key can be overridden with a FAMULUS_ variable
// (dots become underscores); provider credentials keep their
// conventional names (OPENAI_API_KEY, NEWS_API_KEY).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Policy     PolicyConfig `mapstructure:"policy"`
	NLU        NLUConfig    `mapstructure:"nlu"`
	Server     ServerConfig `mapstructure:"server"`
	Router     RouterConfig `mapstructure:"router"`
	News       NewsConfig   `mapstructure:"news"`
	Logs       LogConfig    `mapstructure:"logs"`
	QuotaLimit int          `mapstructure:"quota_limit"`
}

type PolicyConfig struct {
	Path string `mapstructure:"path"`
}

type NLUConfig struct {
	IntentsPath         string  `mapstructure:"intents_path"`
	ClassifierPath      string  `mapstructure:"classifier_path"`
	ParserFloor         float64 `mapstructure:"parser_floor"`
	ClassifierThreshold float64 `mapstructure:"classifier_threshold"`
	ServiceThreshold    float64 `mapstructure:"service_threshold"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	AuthToken string `mapstructure:"auth_token"`
}

type RouterConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type NewsConfig struct {
	APIKey      string `mapstructure:"api_key"`
	SearchLimit int    `mapstructure:"search_limit"`
	SearchDays  int    `mapstructure:"search_days"`
	LocalDays   int    `mapstructure:"local_days"`
	UserAgent   string `mapstructure:"user_agent"`
}

type LogConfig struct {
	MaxBytes    int64 `mapstructure:"max_bytes"`
	BackupCount int   `mapstructure:"backup_count"`
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "famulus-data"
		}
	}
	return filepath.Join(dir, "famulus")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("policy.path", "")
	v.SetDefault("nlu.intents_path", "")
	v.SetDefault("nlu.classifier_path", "")
	v.SetDefault("nlu.parser_floor", 0.5)
	v.SetDefault("nlu.classifier_threshold", 0.55)
	v.SetDefault("nlu.service_threshold", 0.5)
	v.SetDefault("server.addr", "127.0.0.1:8420")
	v.SetDefault("router.model", "gpt-4o-mini")
	v.SetDefault("news.search_limit", 5)
	v.SetDefault("news.search_days", 7)
	v.SetDefault("news.local_days", 2)
	v.SetDefault("news.user_agent", "famulus/1.0")
	v.SetDefault("logs.max_bytes", 5<<20)
	v.SetDefault("logs.backup_count", 3)
	v.SetDefault("quota_limit", 0)
}

// Load resolves configuration. path may name an explicit file; when
// empty the loader looks for famulus.yaml in the working directory and
// in $XDG_CONFIG_HOME/famulus. A missing file is fine: defaults plus
// environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FAMULUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider credentials keep their conventional variable names.
	_ = v.BindEnv("router.api_key", "OPENAI_API_KEY", "FAMULUS_ROUTER_API_KEY")
	_ = v.BindEnv("news.api_key", "NEWS_API_KEY", "FAMULUS_NEWS_API_KEY")
	_ = v.BindEnv("news.search_limit", "NEWS_SEARCH_LIMIT", "FAMULUS_NEWS_SEARCH_LIMIT")
	_ = v.BindEnv("news.search_days", "NEWS_SEARCH_DAYS", "FAMULUS_NEWS_SEARCH_DAYS")
	_ = v.BindEnv("news.local_days", "NEWS_LOCAL_DAYS", "FAMULUS_NEWS_LOCAL_DAYS")
	_ = v.BindEnv("news.user_agent", "NEWS_USER_AGENT", "FAMULUS_NEWS_USER_AGENT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("famulus")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if cfgHome := os.Getenv("XDG_CONFIG_HOME"); cfgHome != "" {
			v.AddConfigPath(filepath.Join(cfgHome, "famulus"))
		} else if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "famulus"))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	applyDerived(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerived fills the paths that hang off the data directory when
// the config file did not pin them.
func applyDerived(cfg *Config) {
	if cfg.Policy.Path == "" {
		cfg.Policy.Path = filepath.Join(cfg.DataDir, "policy.yaml")
	}
	if cfg.NLU.IntentsPath == "" {
		cfg.NLU.IntentsPath = filepath.Join(cfg.DataDir, "intents.yaml")
	}
	if cfg.NLU.ClassifierPath == "" {
		cfg.NLU.ClassifierPath = filepath.Join(cfg.DataDir, "classifier.json")
	}
}

func validate(cfg *Config) error {
	for name, val := range map[string]float64{
		"nlu.parser_floor":         cfg.NLU.ParserFloor,
		"nlu.classifier_threshold": cfg.NLU.ClassifierThreshold,
		"nlu.service_threshold":    cfg.NLU.ServiceThreshold,
	} {
		if val < 0 || val > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %g", name, val)
		}
	}
	if cfg.Logs.MaxBytes < 0 {
		return fmt.Errorf("config: logs.max_bytes must not be negative, got %d", cfg.Logs.MaxBytes)
	}
	if cfg.Logs.BackupCount < 0 {
		return fmt.Errorf("config: logs.backup_count must not be negative, got %d", cfg.Logs.BackupCount)
	}
	if cfg.News.SearchLimit < 1 {
		return fmt.Errorf("config: news.search_limit must be at least 1, got %d", cfg.News.SearchLimit)
	}
	return nil
}

// Store paths derived from the data dir.

func (c *Config) TodosPath() string    { return filepath.Join(c.DataDir, "todos.json") }
func (c *Config) EventsPath() string   { return filepath.Join(c.DataDir, "calendar.json") }
func (c *Config) TipsPath() string     { return filepath.Join(c.DataDir, "kitchen_tips.json") }
func (c *Config) SectionsPath() string { return filepath.Join(c.DataDir, "app_guide.json") }
func (c *Config) QuotaPath() string    { return filepath.Join(c.DataDir, "quota.json") }

func (c *Config) TurnLogPath() string     { return filepath.Join(c.DataDir, "logs", "turns.jsonl") }
func (c *Config) ReviewQueuePath() string { return filepath.Join(c.DataDir, "logs", "review.jsonl") }
func (c *Config) CorrectedPath() string {
	return filepath.Join(c.DataDir, "logs", "corrected.jsonl")
}
func (c *Config) PurgeStatePath() string { return filepath.Join(c.DataDir, "logs", "purge_state.json") }
