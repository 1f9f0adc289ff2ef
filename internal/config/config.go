// internal/config/config.go
package config

type Config struct {
	Service ServiceConfig `yaml:"service"`
	Engine  EngineConfig  `yaml:"engine"`
}

// ---- SERVICE ----

type ServiceConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	HTTPPort string `yaml:"http_port"`

	// Listener fan-out; 0 means one per CPU.
	NumListeners int `yaml:"num_listeners"`

	// Per-connection ring capacity in bytes.
	FifoSize int `yaml:"fifo_size"`

	// Engine service interval in milliseconds.
	TickMs int `yaml:"tick_ms"`

	Serial SerialConfig `yaml:"serial"`
}

// ---- SERIAL (optional, opt-in) ----

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// ---- ENGINE ----

type EngineConfig struct {
	// Mode is "text" or "binary".
	Mode string `yaml:"mode"`

	RecvSize    int `yaml:"recv_size"`
	SendSize    int `yaml:"send_size"`
	MaxCommands int `yaml:"max_commands"`

	Prompt string `yaml:"prompt"`
	Echo   bool   `yaml:"echo"`

	RecvTimeoutMs int `yaml:"recv_timeout_ms"`
	SendWaitMs    int `yaml:"send_wait_ms"`
}
