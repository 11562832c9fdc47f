// Package manifest loads file groups from a YAML document into an
// assets.Environment.
//
// A manifest maps asset type tags to lists of group entries. The reserved
// key asset_groups holds named bundles of such entries that are registered
// as asset-group initializers, and load lists the bundles to load right
// away:
//
//	javascript:
//	  - files: [js/jquery, js/app]
//	    name: application
//	  - files: [js/users]
//	    scope: users
//	    sub_scopes: [index, show]
//	css:
//	  - files: [css/site]
//	asset_groups:
//	  admin:
//	    javascript:
//	      - files: [js/admin]
//	load: [admin]
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/assetpipe/internal/assets"
	"github.com/conneroisu/assetpipe/internal/errors"
)

// Entry describes one group to serve.
type Entry struct {
	Files     []string `yaml:"files"`
	Scope     string   `yaml:"scope,omitempty"`
	SubScopes []string `yaml:"sub_scopes,omitempty"`
	Minify    *bool    `yaml:"minify,omitempty"`
	Name      string   `yaml:"name,omitempty"`
}

// Groups maps a type tag to its entries in document order.
type Groups map[string][]Entry

// Manifest is a parsed manifest document.
type Manifest struct {
	Groups      Groups            `yaml:",inline"`
	AssetGroups map[string]Groups `yaml:"asset_groups,omitempty"`
	Load        []string          `yaml:"load,omitempty"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeManifestInvalid, "cannot read manifest").WithPath(path)
	}

	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		var ae *errors.AssetError
		if errors.As(err, &ae) {
			ae.WithPath(path)
		}
		return nil, err
	}

	return m, nil
}

// Parse decodes and validates a manifest document. Unknown keys inside an
// entry are rejected. An empty document yields an empty manifest.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, errors.WrapConfig(err, errors.ErrCodeManifestInvalid, "cannot parse manifest")
	}
	if m.Groups == nil {
		m.Groups = Groups{}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks that every entry lists files and every loaded bundle is
// defined.
func (m *Manifest) Validate() error {
	if err := m.Groups.validate(""); err != nil {
		return err
	}
	for name, groups := range m.AssetGroups {
		if name == "" {
			return errors.NewConfigError(errors.ErrCodeManifestInvalid, "asset group with empty name")
		}
		if err := groups.validate(name); err != nil {
			return err
		}
	}
	for _, name := range m.Load {
		if _, ok := m.AssetGroups[name]; !ok {
			return errors.NewConfigError(errors.ErrCodeManifestInvalid,
				fmt.Sprintf("load references undefined asset group %q", name))
		}
	}
	return nil
}

func (g Groups) validate(bundle string) error {
	for typ, entries := range g {
		for i, entry := range entries {
			if len(entry.Files) == 0 {
				err := errors.NewConfigError(errors.ErrCodeManifestInvalid,
					fmt.Sprintf("%s entry %d has no files", typ, i)).
					WithContext("type", typ).
					WithContext("index", i)
				if bundle != "" {
					err.WithContext("asset_group", bundle)
				}
				return err
			}
		}
	}
	return nil
}

// Types returns the type tags with top-level entries in sorted order.
func (m *Manifest) Types() []string {
	return m.Groups.types()
}

func (g Groups) types() []string {
	tags := make([]string, 0, len(g))
	for tag := range g {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Apply registers the manifest's asset groups with env, serves the
// top-level entries and then loads the bundles listed under load.
// Types are applied in sorted order and entries in document order.
func (m *Manifest) Apply(env *assets.Environment) error {
	names := make([]string, 0, len(m.AssetGroups))
	for name := range m.AssetGroups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := env.RegisterAssetGroup(name, m.AssetGroups[name].initializer()); err != nil {
			return err
		}
	}

	if err := m.Groups.serve(env, ""); err != nil {
		return err
	}

	for _, name := range m.Load {
		if err := env.LoadAssetGroup(name); err != nil {
			return err
		}
	}

	return nil
}

// initializer returns an asset-group initializer serving g. A string first
// argument becomes the scope of entries that do not name one.
func (g Groups) initializer() assets.AssetGroupFunc {
	return func(env *assets.Environment, args ...interface{}) error {
		scope := ""
		if len(args) > 0 {
			s, ok := args[0].(string)
			if !ok {
				return errors.NewConfigError(errors.ErrCodeConfigInvalid,
					fmt.Sprintf("asset group scope must be a string, got %T", args[0]))
			}
			scope = s
		}
		return g.serve(env, scope)
	}
}

func (g Groups) serve(env *assets.Environment, defaultScope string) error {
	for _, typ := range g.types() {
		for _, entry := range g[typ] {
			scope := entry.Scope
			if scope == "" {
				scope = defaultScope
			}
			if _, err := env.Serve(typ, entry.Files, assets.ServeOptions{
				Minify:    entry.Minify,
				Name:      entry.Name,
				Scope:     scope,
				SubScopes: entry.SubScopes,
			}); err != nil {
				return fmt.Errorf("serve %s %v: %w", typ, entry.Files, err)
			}
		}
	}
	return nil
}
