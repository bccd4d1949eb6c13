package main

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds defaults that flags can override.
type Config struct {
	Capacity int    `yaml:"capacity"`
	Image    string `yaml:"image"`
	Addr     string `yaml:"addr"`
}

func DefaultConfig() Config {
	return Config{
		Capacity: 1 << 20,
		Image:    "partition.img",
		Addr:     ":8000",
	}
}

// LoadConfig reads a YAML config on top of the defaults. An empty path
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %q", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %q", path)
	}

	return cfg, nil
}
