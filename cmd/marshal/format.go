package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// printer writes plain trees, one after another.
type printer interface {
	Print(tree interface{}) error
	Close() error
}

func newPrinter(format string, w io.Writer) (printer, error) {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return yamlPrinter{enc}, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return jsonPrinter{enc}, nil
	case "cbor", "diag":
		mode, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return nil, errors.Wrap(err, "cbor")
		}
		if format == "diag" {
			return &diagPrinter{w: w, mode: mode}, nil
		}
		return cborPrinter{mode.NewEncoder(w)}, nil
	default:
		return nil, errors.Errorf("unknown format %q", format)
	}
}

type yamlPrinter struct {
	enc *yaml.Encoder
}

func (p yamlPrinter) Print(tree interface{}) error { return p.enc.Encode(tree) }
func (p yamlPrinter) Close() error                 { return p.enc.Close() }

type jsonPrinter struct {
	enc *json.Encoder
}

func (p jsonPrinter) Print(tree interface{}) error { return p.enc.Encode(tree) }
func (p jsonPrinter) Close() error                 { return nil }

type cborPrinter struct {
	enc *cbor.Encoder
}

func (p cborPrinter) Print(tree interface{}) error { return p.enc.Encode(tree) }
func (p cborPrinter) Close() error                 { return nil }

// diagPrinter writes CBOR diagnostic notation, one item per line.
type diagPrinter struct {
	w    io.Writer
	mode cbor.EncMode
}

func (p *diagPrinter) Print(tree interface{}) error {
	data, err := p.mode.Marshal(tree)
	if err != nil {
		return err
	}
	notation, err := cbor.Diagnose(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, notation)
	return err
}

func (p *diagPrinter) Close() error { return nil }
