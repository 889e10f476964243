package main

import (
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// compression wraps streams in a compressed channel.
type compression struct {
	reader func(io.Reader) (io.ReadCloser, error)
	writer func(io.Writer) (io.WriteCloser, error)
}

var compressions = map[string]compression{
	"none": {
		reader: func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil },
		writer: func(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil },
	},
	"zlib": {
		reader: zlib.NewReader,
		writer: func(w io.Writer) (io.WriteCloser, error) { return zlib.NewWriter(w), nil },
	},
	"zstd": {
		reader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			enc, err := zstd.NewWriter(w)
			if err != nil {
				return nil, err
			}
			return enc, nil
		},
	},
	"lz4": {
		reader: func(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(lz4.NewReader(r)), nil },
		writer: func(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil },
	},
}

func (c *common) decompress(r io.Reader) (io.ReadCloser, error) {
	rc, err := compressions[c.compression].reader(r)
	return rc, errors.Wrapf(err, "opening %v stream", c.compression)
}

func (c *common) compress(w io.Writer) (io.WriteCloser, error) {
	wc, err := compressions[c.compression].writer(w)
	return wc, errors.Wrapf(err, "opening %v stream", c.compression)
}
