// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.Service.Port < 1 || cfg.Service.Port > 65535 {
		return fmt.Errorf("service: port must be 1-65535, got %d", cfg.Service.Port)
	}

	if cfg.Service.NumListeners < 0 {
		return fmt.Errorf("service: num_listeners must not be negative")
	}

	if cfg.Service.FifoSize < 0 {
		return fmt.Errorf("service: fifo_size must not be negative")
	}

	if cfg.Service.TickMs < 0 {
		return fmt.Errorf("service: tick_ms must not be negative")
	}

	if cfg.Service.Serial.Device != "" && cfg.Service.Serial.Baud < 1 {
		return fmt.Errorf(
			"service: serial device %q needs a positive baud rate",
			cfg.Service.Serial.Device,
		)
	}

	switch cfg.Engine.Mode {
	case "text", "binary":
	default:
		return fmt.Errorf("engine: mode must be \"text\" or \"binary\", got %q", cfg.Engine.Mode)
	}

	if cfg.Engine.RecvSize < 0 || cfg.Engine.SendSize < 0 {
		return fmt.Errorf("engine: buffer sizes must not be negative")
	}

	if cfg.Engine.SendSize > 255 {
		return fmt.Errorf("engine: send_size cannot exceed 255, got %d", cfg.Engine.SendSize)
	}

	if cfg.Engine.MaxCommands < 0 || cfg.Engine.MaxCommands > 256 {
		return fmt.Errorf("engine: max_commands must be 0-256, got %d", cfg.Engine.MaxCommands)
	}

	if cfg.Engine.RecvTimeoutMs < 0 || cfg.Engine.SendWaitMs < 0 {
		return fmt.Errorf("engine: timeouts must not be negative")
	}

	return nil
}
