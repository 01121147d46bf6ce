// Package gavelcfg centralizes the environment-variable configuration for
// the gavel command: GC thresholds, VM stack/call-depth limits, and string
// interning, all overridable by a host deployment without a recompile.
package gavelcfg

import (
	"github.com/caarlos0/env/v6"

	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/vm"
)

// Config mirrors gc.Options and vm.Limits as env-parseable fields.
type Config struct {
	GCInitialBytesThreshold   int  `env:"GAVEL_GC_INITIAL_BYTES" envDefault:"16384"`
	GCInitialStringsThreshold int  `env:"GAVEL_GC_INITIAL_STRINGS" envDefault:"128"`
	InternStrings             bool `env:"GAVEL_INTERN_STRINGS" envDefault:"true"`

	StackMax int `env:"GAVEL_STACK_MAX" envDefault:"512"`
	CallsMax int `env:"GAVEL_CALLS_MAX" envDefault:"64"`
}

// FromEnv parses a Config from the process environment, applying the
// defaults above for anything unset.
func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// HeapOptions projects the GC-related fields as gc.Options.
func (c Config) HeapOptions() gc.Options {
	return gc.Options{
		InitialBytesThreshold:   c.GCInitialBytesThreshold,
		InitialStringsThreshold: c.GCInitialStringsThreshold,
		InternStrings:           c.InternStrings,
	}
}

// Limits projects the VM-related fields as vm.Limits.
func (c Config) Limits() vm.Limits {
	return vm.Limits{
		StackMax: c.StackMax,
		CallsMax: c.CallsMax,
	}
}
