package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/registry"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// EnvDB overrides Store.Path when set.
const EnvDB = "TEXTCLASS_DB"

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// DocumentsQuery, when set with the sqlite driver, reads training
	// documents from a content table instead of the documents table.
	DocumentsQuery string `yaml:"documents_query,omitempty"`
}

// TokenizerConfig configures the stop-word list.
type TokenizerConfig struct {
	StoplistPath string   `yaml:"stoplist_path,omitempty"`
	ExtraStops   []string `yaml:"extra_stopwords,omitempty"`
	// NoDefaultStops drops the built-in articles and prepositions.
	NoDefaultStops bool `yaml:"no_default_stopwords,omitempty"`
}

// TrainingConfig holds the defaults for a training run.
type TrainingConfig struct {
	Kind            string          `yaml:"kind"`
	Params          registry.Params `yaml:"params"`
	ComputeAccuracy *bool           `yaml:"compute_accuracy,omitempty"`
}

// PredictionConfig configures prediction auditing.
type PredictionConfig struct {
	Record *bool `yaml:"record,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the root configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer"`
	Training   TrainingConfig   `yaml:"training"`
	Prediction PredictionConfig `yaml:"prediction"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(c *Config) {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Path == "" && c.Store.Driver != DriverMemory {
		c.Store.Path = "textclass.db"
	}
	if c.Training.Kind == "" {
		c.Training.Kind = string(classify.NaiveBayes)
	}
	if c.Training.ComputeAccuracy == nil {
		c.Training.ComputeAccuracy = boolPtr(true)
	}
	if c.Prediction.Record == nil {
		c.Prediction.Record = boolPtr(true)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func boolPtr(b bool) *bool { return &b }

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv applies environment overrides through lookup, typically
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.Store.Path = v
	}
}

// Validate checks driver, kind and params.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverBadger, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store driver %q", internalerr.ErrInvalidConfig, c.Store.Driver)
	}
	if c.Store.DocumentsQuery != "" && c.Store.Driver != DriverSQLite {
		return fmt.Errorf("%w: documents_query needs the sqlite driver", internalerr.ErrInvalidConfig)
	}
	if _, err := classify.ParseKind(c.Training.Kind); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	p := c.Training.Params
	if p.K < 0 || p.MaxDepth < 0 || p.MinSamples < 0 {
		return fmt.Errorf("%w: negative training params %+v", internalerr.ErrInvalidConfig, p)
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	return &sl, nil
}

// SaveStoplist writes terms in the format LoadStoplist reads.
func SaveStoplist(path string, terms []string) error {
	data, err := yaml.Marshal(Stoplist{Terms: terms})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
