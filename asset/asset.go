// Package asset resolves card definitions from their sources: inline
// JSON, files under an asset registry, or named entries in a catalog.
package asset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jsccast/yaml"

	"github.com/flowcard/flowcard/card"
)

// Resolver callbacks let a host serve card definitions from places
// the engine doesn't know about (bundles, databases).  A resolver
// returning (nil, nil) means "not mine"; the chain continues.
type Resolver func(name string) (interface{}, error)

var (
	hostMu        sync.Mutex
	hostResolvers []Resolver
)

// RegisterHostResolver installs a process-wide Resolver.  Every
// Registry consults the registered resolvers last, after its own
// Resolvers and the filesystem.
func RegisterHostResolver(r Resolver) {
	hostMu.Lock()
	hostResolvers = append(hostResolvers, r)
	hostMu.Unlock()
}

func hostResolve(name string) (interface{}, error) {
	hostMu.Lock()
	resolvers := make([]Resolver, len(hostResolvers))
	copy(resolvers, hostResolvers)
	hostMu.Unlock()

	for _, res := range resolvers {
		tree, err := res(name)
		if err != nil {
			return nil, err
		}
		if tree != nil {
			return card.Canonicalize(tree)
		}
	}
	return nil, nil
}

// NotFound reports that no source produced a card definition.
type NotFound struct {
	Name     string
	Searched []string
}

func (e *NotFound) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("card definition '%s' not found", e.Name)
	}
	return fmt.Sprintf("card definition '%s' not found (searched %s)",
		e.Name, strings.Join(e.Searched, ", "))
}

// Registry locates and loads card definitions.  The zero value reads
// environment configuration lazily on first use.
type Registry struct {
	// Dir is the root for asset-relative paths.  Defaults to
	// $FLOWCARD_ASSET_REGISTRY, then $FLOWCARD_ASSET_BASE, then
	// "assets".
	Dir string

	// CatalogFile names a JSON or YAML file mapping catalog names
	// to card definitions (or to asset paths).  Defaults to
	// $FLOWCARD_CATALOG_FILE.
	CatalogFile string

	// Resolvers are consulted, in order, before the filesystem.
	Resolvers []Resolver

	once    sync.Once
	catalog map[string]interface{}
	catErr  error
}

func (r *Registry) init() {
	r.once.Do(func() {
		if r.Dir == "" {
			r.Dir = os.Getenv("FLOWCARD_ASSET_REGISTRY")
		}
		if r.Dir == "" {
			r.Dir = os.Getenv("FLOWCARD_ASSET_BASE")
		}
		if r.Dir == "" {
			r.Dir = "assets"
		}
		if r.CatalogFile == "" {
			r.CatalogFile = os.Getenv("FLOWCARD_CATALOG_FILE")
		}
		if r.CatalogFile != "" {
			r.catalog, r.catErr = loadCatalog(r.CatalogFile)
		}
	})
}

// Resolve turns a card source into a canonical card tree.  A
// spec-level AssetRegistry maps names to paths before the filesystem
// is consulted.
func (r *Registry) Resolve(src card.Source, spec *card.Spec) (interface{}, error) {
	r.init()
	switch src {
	case card.SourceInline:
		if js, is := spec.InlineJSON.(string); is {
			return parseDefinition([]byte(js))
		}
		return card.Canonicalize(spec.InlineJSON)
	case card.SourceAsset:
		name := spec.AssetPath
		if mapped, have := spec.AssetRegistry[name]; have {
			name = mapped
		}
		return r.FromAsset(name)
	case card.SourceCatalog:
		if mapped, have := spec.AssetRegistry[spec.CatalogName]; have {
			return r.FromAsset(mapped)
		}
		return r.FromCatalog(spec.CatalogName)
	}
	return nil, fmt.Errorf("unknown card source '%s'", src)
}

// FromAsset loads a card definition from the asset registry.  A
// name without an extension is tried with .json, .yaml, and .yml, in
// that order.
func (r *Registry) FromAsset(name string) (interface{}, error) {
	r.init()

	for _, res := range r.Resolvers {
		tree, err := res(name)
		if err != nil {
			return nil, err
		}
		if tree != nil {
			return card.Canonicalize(tree)
		}
	}

	searched := make([]string, 0, 3)
	for _, candidate := range candidates(name) {
		path := candidate
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.Dir, path)
		}
		bs, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				searched = append(searched, path)
				continue
			}
			return nil, err
		}
		return parseDefinition(bs)
	}

	if tree, err := hostResolve(name); err != nil || tree != nil {
		return tree, err
	}
	return nil, &NotFound{Name: name, Searched: searched}
}

// FromCatalog looks a card definition up by catalog name.  A string
// entry is an asset path; anything else is the definition itself.
func (r *Registry) FromCatalog(name string) (interface{}, error) {
	r.init()
	if r.catErr != nil {
		return nil, r.catErr
	}
	if r.catalog == nil {
		return nil, &NotFound{Name: name}
	}
	entry, have := r.catalog[name]
	if !have {
		return nil, &NotFound{Name: name, Searched: []string{r.CatalogFile}}
	}
	if path, is := entry.(string); is {
		return r.FromAsset(path)
	}
	return card.Canonicalize(entry)
}

func candidates(name string) []string {
	if filepath.Ext(name) != "" {
		return []string{name}
	}
	return []string{name + ".json", name + ".yaml", name + ".yml"}
}

// parseDefinition decodes JSON or, failing that, YAML, and
// canonicalizes the result.
func parseDefinition(bs []byte) (interface{}, error) {
	var tree interface{}
	if err := json.Unmarshal(bs, &tree); err != nil {
		if yerr := yaml.Unmarshal(bs, &tree); yerr != nil {
			return nil, fmt.Errorf("not JSON (%s) or YAML (%s)", err, yerr)
		}
	}
	return card.Canonicalize(tree)
}

func loadCatalog(filename string) (map[string]interface{}, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	tree, err := parseDefinition(bs)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %s", filename, err)
	}
	m, is := tree.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("catalog %s is not an object", filename)
	}
	return m, nil
}
