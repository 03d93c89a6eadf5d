package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type LoggerConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// PipelineComponent is one node of the pipeline tree. Every key that is
// not one of the declared fields belongs to the component itself and is
// decoded again by the component registry.
type PipelineComponent struct {
	Name     string                 `yaml:"name"`
	Disabled bool                   `yaml:"disabled"`
	Config   map[string]interface{} `yaml:",inline"`
	Connects []PipelineComponent    `yaml:"connects"`
}

type Config struct {
	Listener string              `yaml:"listener"`
	BaseURL  string              `yaml:"base-url"`
	Logger   LoggerConfig        `yaml:"logger"`
	Database DatabaseConfig      `yaml:"database"`
	Pipeline []PipelineComponent `yaml:"pipeline"`
}

func defaultConfig() *Config {
	return &Config{
		Listener: "localhost:4711",
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// NewConfig returns a decoded Config struct from the given file path.
func NewConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration file: %w", err)
	}
	return NewConfigFromStr(file)
}

// NewConfigFromStr returns a decoded Config struct from raw YAML.
func NewConfigFromStr(data []byte) (*Config, error) {
	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("could not parse configuration: %w", err)
	}
	return config, nil
}
