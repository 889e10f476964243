package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/stewi1014/marshal"
	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/internal/plain"
)

func inspect(c *common, args []string) error {
	input := c.flags.StringP("input", "i", "-", "stream to read, - for stdin")
	format := c.flags.StringP("format", "f", "yaml", "output format: yaml, json, cbor, diag or hex")
	all := c.flags.BoolP("all", "a", false, "read every value in the stream, not just the first")
	restricted := c.flags.Bool("restricted", false, "don't run load hooks")
	strict := c.flags.Bool("strict", false, "fail on names the namespace doesn't hold, instead of declaring them")
	if err := c.parse(args); err != nil {
		return err
	}

	in, err := c.open(*input)
	if err != nil {
		return err
	}
	defer in.Close()

	r, err := c.decompress(in)
	if err != nil {
		return err
	}
	defer r.Close()

	sum := encio.NewChecksumReader(r, blake3.New())
	defer func() {
		if c.digest {
			fmt.Fprintf(c.stderr, "blake3 %x\n", sum.Sum())
		}
	}()

	if *format == "hex" {
		dumper := hex.Dumper(c.stdout)
		if _, err := io.Copy(dumper, sum); err != nil {
			return pkgerrors.Wrap(err, "reading stream")
		}
		return dumper.Close()
	}

	ns, err := c.loadNamespace()
	if err != nil {
		return err
	}

	p, err := newPrinter(*format, c.stdout)
	if err != nil {
		return err
	}

	dec := marshal.NewDecoder(sum, &marshal.Config{
		Namespace:  ns,
		Restricted: *restricted,
		Lenient:    !*strict,
		Logger:     c.logger(),
	})

	for n := 0; ; n++ {
		v, err := dec.Decode()
		if n > 0 && errors.Is(err, encio.ErrEmptyInput) {
			break
		}
		if err != nil {
			return pkgerrors.Wrapf(err, "value %v", n)
		}

		if err := p.Print(plain.ToPlain(v)); err != nil {
			return pkgerrors.Wrap(err, "printing")
		}
		if !*all {
			break
		}
	}

	return p.Close()
}
