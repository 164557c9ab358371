package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/routewire/go-routetable/artifact"
	"github.com/routewire/go-routetable/compiler"
	"github.com/routewire/go-routetable/routemeta"
)

// manifestFile is the YAML manifest routec compiles.
type manifestFile struct {
	Routes []manifestRoute `yaml:"routes"`
}

type manifestRoute struct {
	Method      string   `yaml:"method"`
	Pattern     string   `yaml:"pattern"`
	Handler     string   `yaml:"handler"`
	Permissions []string `yaml:"permissions"`
	Middleware  []string `yaml:"middleware"`
}

// loadManifest reads a YAML manifest and encodes each route's metadata with
// the deterministic routemeta codec.
func loadManifest(path string) (compiler.Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mf manifestFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	codec, err := routemeta.NewCodec()
	if err != nil {
		return nil, err
	}
	m := make(compiler.Manifest, 0, len(mf.Routes))
	for i, r := range mf.Routes {
		method, err := artifact.ParseMethod(r.Method)
		if err != nil {
			return nil, fmt.Errorf("%s: route %d: %w", path, i, err)
		}
		meta, err := codec.Marshal(routemeta.Meta{
			Handler:     r.Handler,
			Permissions: r.Permissions,
			Middleware:  r.Middleware,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: route %d: %w", path, i, err)
		}
		m = append(m, compiler.Route{Method: method, Pattern: r.Pattern, Meta: meta})
	}
	return m, nil
}
