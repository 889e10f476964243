package marshal

import (
	"log/slog"

	"github.com/stewi1014/marshal/encodable"
	"github.com/stewi1014/marshal/types"
)

// Config defines configuration for Encoders and Decoders
type Config struct {
	// Namespace holds classes, modules and hooks.
	// If nil, DefaultNamespace is used.
	Namespace *types.Namespace

	// Resolver resolves names read from streams. If nil, Namespace is used.
	Resolver encodable.Resolver

	// Restricted denies dump and load hooks; see encodable.Config.
	Restricted bool

	// Lenient defines unknown names and keeps custom payloads without hooks as *types.UserData.
	Lenient bool

	// Proc is called with every decoded value.
	Proc func(v types.Value) (types.Value, error)

	// Logger receives debug events.
	Logger *slog.Logger
}

func (c *Config) copyAndFill() *Config {
	config := new(Config)
	if c != nil {
		*config = *c
	}

	if config.Namespace == nil {
		config.Namespace = DefaultNamespace
	}

	return config
}

// codec returns the encodable configuration for c.
func (c *Config) codec() *encodable.Config {
	config := c.copyAndFill()
	return &encodable.Config{
		Namespace:  config.Namespace,
		Resolver:   config.Resolver,
		Restricted: config.Restricted,
		Lenient:    config.Lenient,
		Proc:       config.Proc,
		Logger:     config.Logger,
	}
}
