package memory

import (
	"fmt"
	"time"
)

// Config holds SharedMemory configuration.
type Config struct {
	// Dimension is the embedding length every vector must have.
	// Default: 768.
	Dimension int

	// Metric is the comparison used by the built-in FlatIndex.
	// Default: l2, under which only exact duplicates tie. Cosine ranks any
	// positive multiple of a vector equal to the vector itself.
	Metric Metric

	// ContextMaxAge is the age past which EvictStaleContexts drops entries.
	// Zero disables eviction. Default: 24h.
	ContextMaxAge time.Duration
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() Config {
	return Config{
		Dimension:     768,
		Metric:        MetricL2,
		ContextMaxAge: 24 * time.Hour,
	}
}

// Validate checks the configuration and fills in the metric default.
func (c *Config) Validate() error {
	if c.Dimension < 1 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	}
	m, err := ParseMetric(string(c.Metric))
	if err != nil {
		return err
	}
	c.Metric = m
	if c.ContextMaxAge < 0 {
		return fmt.Errorf("%w: context max age must not be negative", ErrInvalidConfig)
	}
	return nil
}
