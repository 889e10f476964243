// Package manifest loads namespace manifests.
//
// A manifest is a YAML file declaring the modules, classes and struct templates a stream refers to,
// so that streams written by other programs can be decoded without registering each name in code:
//
//	modules:
//	  - Comparable::Extra
//	classes:
//	  - name: Money
//	  - name: Tags
//	    super: Array
//	structs:
//	  - name: Point
//	    members: [x, y]
//
// Classes without a super inherit from Object. A super may name a class declared later in the same manifest.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stewi1014/marshal/encio"
	"github.com/stewi1014/marshal/types"
)

// Manifest lists names to declare in a Namespace.
type Manifest struct {
	Modules []string `yaml:"modules"`
	Classes []Class  `yaml:"classes"`
	Structs []Struct `yaml:"structs"`
}

// Class declares a class.
type Class struct {
	Name  string `yaml:"name"`
	Super string `yaml:"super,omitempty"`
}

// Struct declares a struct template.
type Struct struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// LoadFile reads and validates the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading manifest")
	}

	m, err := Parse(data)
	if err != nil {
		return nil, pkgerrors.Wrap(err, path)
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are errors.
func Parse(data []byte) (*Manifest, error) {
	m := new(Manifest)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(err, "parsing manifest")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the manifest for missing names and duplicates.
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[string]bool)

	check := func(kind, name string) {
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%v with no name", kind))
		case seen[name]:
			errs = append(errs, fmt.Errorf("%v declared twice", name))
		}
		seen[name] = true
	}

	for _, name := range m.Modules {
		check("module", name)
	}
	for _, c := range m.Classes {
		check("class", c.Name)
	}
	for _, s := range m.Structs {
		check("struct", s.Name)
		members := make(map[string]bool, len(s.Members))
		for _, member := range s.Members {
			if members[member] {
				errs = append(errs, fmt.Errorf("%v: member %v declared twice", s.Name, member))
			}
			members[member] = true
		}
	}

	return errors.Join(errs...)
}

// Apply declares everything in the manifest in ns.
// Names ns already holds are left alone if they agree with the manifest.
func (m *Manifest) Apply(ns *types.Namespace) error {
	var pending []func() error

	for _, name := range m.Modules {
		name := name
		pending = append(pending, func() error {
			_, err := ns.DefineModule(name)
			return pkgerrors.Wrapf(err, "module %v", name)
		})
	}

	for _, s := range m.Structs {
		s := s
		members := make([]types.Symbol, len(s.Members))
		for i, member := range s.Members {
			members[i] = types.Symbol(member)
		}
		pending = append(pending, func() error {
			_, err := ns.DefineStruct(s.Name, members...)
			return pkgerrors.Wrapf(err, "struct %v", s.Name)
		})
	}

	for _, c := range m.Classes {
		c := c
		pending = append(pending, func() error {
			super := ns.Object
			if c.Super != "" {
				var err error
				if super, err = ns.ResolveClass(c.Super); err != nil {
					return pkgerrors.Wrapf(err, "class %v", c.Name)
				}
			}
			_, err := ns.DefineClass(c.Name, super)
			return pkgerrors.Wrapf(err, "class %v", c.Name)
		})
	}

	// names can refer to ones declared later, so keep passing over what's left until nothing changes.
	for len(pending) > 0 {
		var (
			later   []func() error
			lastErr error
		)
		for _, define := range pending {
			err := define()
			switch {
			case err == nil:
			case errors.Is(err, encio.ErrUnresolvedName):
				later = append(later, define)
				lastErr = err
			default:
				return err
			}
		}

		if len(later) == len(pending) {
			return lastErr
		}
		pending = later
	}

	return nil
}
