package tracing

// Config holds tracing configuration. Exporting spans off-process (OTLP,
// Jaeger, etc) is an external-collaborator concern outside this module's
// scope; Config only controls whether spans are created and sampled, so
// job/discovery code can be unconditionally instrumented without forcing a
// tracing backend on every deployment.
type Config struct {
	Enable      bool    `mapstructure:"enable" yaml:"enable"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enable:      false,
		ServiceName: "tncctl",
		SampleRate:  1.0,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	if c.ServiceName == "" {
		c.ServiceName = "tncctl"
	}
	return nil
}
