package core

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath   = "clovis.config.yml"
	defaultTemplatesDir = "templates"
	defaultStaticDir    = "static"
	defaultOutputDir    = "./cache"
)

type Config struct {
	TemplatesDir string `yaml:"templatesDir"`
	StaticDir    string `yaml:"staticDir"`
	OutputDir    string `yaml:"outputDir"`
	CacheEnabled bool   `yaml:"cache"`
	DebugHeaders bool   `yaml:"debugHeaders"`
	DebugLogs    bool   `yaml:"debugLogs"`
	MinifyHTML   bool   `yaml:"minifyHTML"`
}

// LoadConfig reads the YAML config at path. A missing or unreadable file
// yields the defaults; empty directory keys fall back to their defaults.
var LoadConfig = func(path string) *Config {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			cfg = &Config{}
		}
	}

	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.TemplatesDir == "" {
		c.TemplatesDir = defaultTemplatesDir
	}
	if c.StaticDir == "" {
		c.StaticDir = defaultStaticDir
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
}
