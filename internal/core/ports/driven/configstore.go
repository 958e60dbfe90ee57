package driven

// ConfigStore provides access to application configuration.
// Implementations handle persistence (TOML file) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value; empty when missing or not a string.
	GetString(key string) string

	// GetInt retrieves an integer value; 0 when missing or not an integer.
	GetInt(key string) int

	// GetFloat retrieves a float value; 0 when missing or not numeric.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value; false when missing or not a bool.
	GetBool(key string) bool

	// Set stores a configuration value. The value is persisted immediately.
	Set(key string, value any) error

	// Load reads configuration from storage.
	Load() error

	// Watch invokes onChange whenever the backing file changes on disk.
	// The store reloads itself before the callback runs.
	Watch(onChange func()) error

	// Path returns the configuration file path.
	Path() string

	// Close stops watching and releases resources.
	Close() error
}
