// Package flashbenchcfg loads the optional YAML defaults file a flashbench
// invocation can point at with --config: device-context defaults and the
// default input/output paths, so a recurring benchmark rig does not need to
// repeat the same flags on every run.
package flashbenchcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/flashbench/pkg/catalogue"
	"github.com/ja7ad/flashbench/pkg/model"
)

// Config is the optional on-disk defaults file. Every field is optional;
// zero values mean "unset" and leave the corresponding flag default or
// command-line override in place.
type Config struct {
	Device struct {
		JEDEC         string  `yaml:"jedec"`
		SCKMHz        float64 `yaml:"sck_mhz"`
		CapacityBytes uint64  `yaml:"capacity_bytes"`
	} `yaml:"device"`
	Paths struct {
		Results   string `yaml:"results"`
		Catalogue string `yaml:"catalogue"`
		Out       string `yaml:"out"`
	} `yaml:"paths"`
}

// Load reads and parses a YAML config file. A missing path is not an error:
// it returns a zero Config, matching flashbench's "degrade to absent"
// handling of optional inputs.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("flashbenchcfg: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("flashbenchcfg: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DeviceContext builds a model.DeviceContext from the config, to be
// overridden field-by-field by any explicit CLI flags the caller passed.
func (c Config) DeviceContext() model.DeviceContext {
	return model.DeviceContext{
		JEDEC:         catalogue.NormaliseJEDEC(c.Device.JEDEC),
		SCKMHz:        c.Device.SCKMHz,
		CapacityBytes: c.Device.CapacityBytes,
	}
}
