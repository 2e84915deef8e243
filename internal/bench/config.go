package bench

import (
	"time"

	"github.com/forscht/relock/pkg/validator"
)

var validate = validator.New()

// Config describes one workload run against a lock stack.
type Config struct {
	// Stack lists the lock layers outermost first, e.g. reentrant, keyed, rw, mutex.
	Stack      []string      `mapstructure:"stack" json:"stack" validate:"required,lockstack"`
	Greedy     bool          `mapstructure:"greedy" json:"greedy"`
	PreferRead bool          `mapstructure:"prefer_read" json:"prefer_read"`
	Resolver   string        `mapstructure:"resolver" json:"resolver" validate:"omitempty,oneof=none path stripe"`
	Stripes    int           `mapstructure:"stripes" json:"stripes" validate:"required_if=Resolver stripe,gte=0"`
	Workers    int           `mapstructure:"workers" json:"workers" validate:"required,min=1,max=1024"`
	Ops        int           `mapstructure:"ops" json:"ops" validate:"required,min=1,max=1000000"`
	Keys       []string      `mapstructure:"keys" json:"keys" validate:"required,min=1,dive,required,regex=^[[:print:]]+$"`
	ReadRatio  float64       `mapstructure:"read_ratio" json:"read_ratio" validate:"gte=0,lte=1"`
	Reentry    int           `mapstructure:"reentry" json:"reentry" validate:"gte=0,lte=64"`
	Hold       time.Duration `mapstructure:"hold" json:"hold" validate:"gte=0"`
	Seed       int64         `mapstructure:"seed" json:"seed"`
}

// DefaultConfig returns the workload run when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Stack:     []string{"reentrant", "keyed", "rw", "mutex"},
		Greedy:    true,
		Workers:   8,
		Ops:       100,
		Keys:      []string{"a", "b", "c"},
		ReadRatio: 0.5,
		Reentry:   1,
		Hold:      100 * time.Microsecond,
		Seed:      1,
	}
}

// Validate checks c against its validation tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

func (c *Config) has(layer string) bool {
	for _, l := range c.Stack {
		if l == layer {
			return true
		}
	}
	return false
}
