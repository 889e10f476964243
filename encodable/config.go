package encodable

import (
	"io"
	"log/slog"
	"reflect"

	"github.com/stewi1014/marshal/types"
)

// Config contains settings for Encoders and Decoders.
type Config struct {
	// Namespace holds the built-in classes and the custom encode hooks.
	// If nil, a new Namespace is used.
	Namespace *types.Namespace

	// Resolver resolves class and module names when decoding. If nil, Namespace is used.
	Resolver Resolver

	// Restricted denies dispatch to hooks, returning encio.ErrSecurity instead.
	// A restricted Namespace has the same effect.
	Restricted bool

	// Lenient decodes names the Resolver doesn't know by defining them, if it implements Definer,
	// and decodes custom-encoded values without a load hook to *types.UserData.
	// Values that Restricted would deny also decode to *types.UserData.
	Lenient bool

	// Proc, if set, is called with every value read from a stream, and its result used in its place.
	// Back-references still resolve to the value as it was before Proc.
	Proc func(v types.Value) (types.Value, error)

	// Logger receives debug events. If nil, nothing is logged.
	Logger *slog.Logger
}

// String returns a string describing the configuration.
// Format is Config(options, Resolver: <Resolver>).
// Options are
// - r for Restricted
// - l for Lenient
// - p when Proc is set
func (c *Config) String() string {
	if c == nil {
		return "Config()"
	}

	var opts string
	if c.Restricted {
		opts += "r"
	}
	if c.Lenient {
		opts += "l"
	}
	if c.Proc != nil {
		opts += "p"
	}

	str := "Config("
	if opts != "" {
		str += " " + opts
	}
	if c.Resolver != nil {
		if opts != "" {
			str += ","
		}
		str += " Resolver: " + reflect.TypeOf(c.Resolver).String()
	}
	return str + ")"
}

// copyAndFill returns a copy of c with defaults in place of nil fields.
func (c *Config) copyAndFill() *Config {
	config := new(Config)
	if c != nil {
		*config = *c
	}

	if config.Namespace == nil {
		config.Namespace = types.NewNamespace()
	}
	if config.Resolver == nil {
		config.Resolver = config.Namespace
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return config
}
