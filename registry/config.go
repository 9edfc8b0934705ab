package registry

// Config holds the registry configuration.
type Config struct {
	// DBPath is the SQLite file. Default: ":memory:".
	DBPath string `json:"db_path" yaml:"db_path"`

	// Verbose asks every registering driver for verbose mode, whatever the
	// per-window preference.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = ":memory:"
	}
}
