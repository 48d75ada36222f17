package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Project struct {
		Root        string   `yaml:"root"`
		ExcludeDirs []string `yaml:"exclude_dirs"`
	} `yaml:"project"`
	Analysis struct {
		Profile       string `yaml:"profile"`         // strict | heuristic
		Workers       int    `yaml:"workers"`         // 0 means one per CPU
		TypeCheckUses bool   `yaml:"type_check_uses"` // isinstance -> Use(Class)
	} `yaml:"analysis"`
	Output struct {
		Format string   `yaml:"format"` // dsm | edges
		Naming string   `yaml:"naming"` // canonical | structured
		Kinds  []string `yaml:"kinds"`
		Name   string   `yaml:"name"`
	} `yaml:"output"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`
}

func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Analysis.Profile = "strict"
	cfg.Output.Format = "dsm"
	cfg.Output.Naming = "canonical"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if profile := os.Getenv("DEPGRAPH_PROFILE"); profile != "" {
		cfg.Analysis.Profile = profile
	}
	if workers := os.Getenv("DEPGRAPH_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return nil, fmt.Errorf("%w: DEPGRAPH_WORKERS=%q", ErrInvalidConfig, workers)
		}
		cfg.Analysis.Workers = n
	}
	if level := os.Getenv("DEPGRAPH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if db := os.Getenv("DEPGRAPH_DB"); db != "" {
		cfg.Store.Path = db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	oneOf := func(field, value string, allowed ...string) error {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s %q (want one of %s)", ErrInvalidConfig, field, value, strings.Join(allowed, ", "))
	}
	if err := oneOf("analysis.profile", c.Analysis.Profile, "strict", "heuristic"); err != nil {
		return err
	}
	if err := oneOf("output.format", c.Output.Format, "dsm", "edges"); err != nil {
		return err
	}
	if err := oneOf("output.naming", c.Output.Naming, "canonical", "structured"); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		return err
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("%w: analysis.workers %d", ErrInvalidConfig, c.Analysis.Workers)
	}
	return nil
}
