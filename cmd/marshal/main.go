// marshal inspects and writes object graph streams.
//
//	marshal inspect [flags]   decode a stream and print a readable view of it
//	marshal encode [flags]    encode YAML documents as a stream
//
// Run a subcommand with --help for its flags.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/stewi1014/marshal/internal/manifest"
	"github.com/stewi1014/marshal/types"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: marshal <command> [flags]

commands:
  inspect   decode a stream and print a readable view of it
  encode    encode YAML documents as a stream
`

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("no command given")
	}

	var cmd func(*common, []string) error
	switch args[0] {
	case "inspect":
		cmd = inspect
	case "encode":
		cmd = encode
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return errors.Errorf("unknown command %q", args[0])
	}

	c := &common{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		flags:  pflag.NewFlagSet(args[0], pflag.ContinueOnError),
	}
	c.flags.SetOutput(stderr)
	c.flags.StringVar(&c.namespace, "namespace", "", "YAML manifest declaring classes, modules and structs")
	c.flags.StringVarP(&c.compression, "compression", "c", "none", "stream compression: none, zlib, zstd or lz4")
	c.flags.BoolVar(&c.digest, "digest", false, "print the BLAKE3 digest of the uncompressed stream to stderr")
	c.flags.BoolVarP(&c.verbose, "verbose", "v", false, "log debug events to stderr")

	err := cmd(c, args[1:])
	if err == pflag.ErrHelp {
		return nil
	}
	return err
}

// common holds what every command shares.
type common struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	flags          *pflag.FlagSet

	namespace   string
	compression string
	digest      bool
	verbose     bool
}

func (c *common) parse(args []string) error {
	if err := c.flags.Parse(args); err != nil {
		return err
	}
	if c.flags.NArg() > 0 {
		return errors.Errorf("unexpected argument %q", c.flags.Arg(0))
	}
	if _, ok := compressions[c.compression]; !ok {
		return errors.Errorf("unknown compression %q", c.compression)
	}
	return nil
}

func (c *common) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

// loadNamespace returns a fresh Namespace holding the manifest's names, if one was given.
func (c *common) loadNamespace() (*types.Namespace, error) {
	ns := types.NewNamespace()
	if c.namespace == "" {
		return ns, nil
	}

	m, err := manifest.LoadFile(c.namespace)
	if err != nil {
		return nil, err
	}
	if err := m.Apply(ns); err != nil {
		return nil, errors.Wrap(err, c.namespace)
	}
	return ns, nil
}

// open returns the named file for reading, or stdin for "-".
func (c *common) open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(c.stdin), nil
	}
	f, err := os.Open(path)
	return f, errors.Wrap(err, "opening input")
}

// create returns the named file for writing, or stdout for "-".
func (c *common) create(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{c.stdout}, nil
	}
	f, err := os.Create(path)
	return f, errors.Wrap(err, "creating output")
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
