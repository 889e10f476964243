package main

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/stewi1014/marshal"
	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/internal/plain"
)

// encode writes one value per YAML document in the input.
func encode(c *common, args []string) error {
	input := c.flags.StringP("input", "i", "-", "YAML documents to read, - for stdin")
	output := c.flags.StringP("output", "o", "-", "file to write the stream to, - for stdout")
	depth := c.flags.IntP("depth", "d", -1, "maximum nesting depth, negative for no limit")
	if err := c.parse(args); err != nil {
		return err
	}

	ns, err := c.loadNamespace()
	if err != nil {
		return err
	}

	in, err := c.open(*input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := c.create(*output)
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := c.compress(out)
	if err != nil {
		return err
	}

	sum := encio.NewChecksumWriter(w, blake3.New())
	enc := marshal.NewEncoder(sum, &marshal.Config{
		Namespace: ns,
		Logger:    c.logger(),
	})

	docs := yaml.NewDecoder(in)
	for n := 0; ; n++ {
		var tree interface{}
		err := docs.Decode(&tree)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return pkgerrors.Wrapf(err, "document %v", n)
		}

		v, err := plain.FromPlain(tree, ns)
		if err != nil {
			return pkgerrors.Wrapf(err, "document %v", n)
		}
		if err := enc.EncodeDepth(v, *depth); err != nil {
			return pkgerrors.Wrapf(err, "document %v", n)
		}
	}

	if err := w.Close(); err != nil {
		return pkgerrors.Wrap(err, "closing stream")
	}
	if c.digest {
		fmt.Fprintf(c.stderr, "blake3 %x\n", sum.Sum())
	}
	return out.Close()
}
