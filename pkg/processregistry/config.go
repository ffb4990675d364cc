package processregistry

const DefaultMaxAncestorDepth = 1024

type Config struct {
	// MaxAncestorDepth bounds every walk up the process tree.
	MaxAncestorDepth int `mapstructure:"maxAncestorDepth"`
}

func (c Config) WithDefaults() Config {
	if c.MaxAncestorDepth <= 0 {
		c.MaxAncestorDepth = DefaultMaxAncestorDepth
	}
	return c
}
