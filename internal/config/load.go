// internal/config/load.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luma/tiller/engine"
)

// Default returns the configuration used when no file is given: a text
// console on the standard port with engine defaults.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Host:     "0.0.0.0",
			Port:     7363,
			HTTPPort: "7362",
		},
		Engine: EngineConfig{
			Mode:   "text",
			Prompt: "> ",
			Echo:   true,
		},
	}
}

// Load reads and validates a YAML configuration file. Absent fields
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EngineConfig maps the file's engine section onto the engine's own
// configuration type.
func (c *Config) EngineConfig() engine.Config {
	mode := engine.ModeText
	if c.Engine.Mode == "binary" {
		mode = engine.ModeBinary
	}

	return engine.Config{
		Mode:        mode,
		RecvSize:    c.Engine.RecvSize,
		SendSize:    c.Engine.SendSize,
		MaxCommands: c.Engine.MaxCommands,
		Prompt:      c.Engine.Prompt,
		Echo:        c.Engine.Echo,
		RecvTimeout: time.Duration(c.Engine.RecvTimeoutMs) * time.Millisecond,
		SendWait:    time.Duration(c.Engine.SendWaitMs) * time.Millisecond,
	}
}
