package vicisapi

import "runtime"

// Config controls how a module is lowered. The zero value is not usable;
// use NewConfig. Each With* method returns a modified copy, so a Config
// can be shared between engines.
type Config struct {
	workers         int
	maxInstructions int
	verify          bool
}

// NewConfig returns the default Config: one worker per available CPU,
// no instruction limit and no SSA verification.
func NewConfig() *Config {
	return &Config{workers: runtime.GOMAXPROCS(0)}
}

func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// WithWorkers sets the number of functions lowered concurrently.
// Values below one are treated as one.
func (c *Config) WithWorkers(n int) *Config {
	ret := c.clone()
	if n < 1 {
		n = 1
	}
	ret.workers = n
	return ret
}

// WithMaxInstructions bounds the number of machine instructions a single
// function may lower to. Zero means unlimited.
func (c *Config) WithMaxInstructions(n int) *Config {
	ret := c.clone()
	if n < 0 {
		n = 0
	}
	ret.maxInstructions = n
	return ret
}

// WithVerify enables ssa.Function.Verify before each function is lowered.
func (c *Config) WithVerify(enabled bool) *Config {
	ret := c.clone()
	ret.verify = enabled
	return ret
}

// Workers returns the value set by WithWorkers.
func (c *Config) Workers() int { return c.workers }

// MaxInstructions returns the value set by WithMaxInstructions.
func (c *Config) MaxInstructions() int { return c.maxInstructions }

// Verify returns the value set by WithVerify.
func (c *Config) Verify() bool { return c.verify }
