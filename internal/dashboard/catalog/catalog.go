package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"office-dashboard/internal/dashboard/domain/model"

	"gopkg.in/yaml.v3"
)

//go:embed entities.yaml
var builtin []byte

// Catalog is the loaded set of entity kinds with their compiled rules.
type Catalog struct {
	kinds map[string]*model.EntityKind
	rules map[string]*compiledRules
}

type file struct {
	Kinds []model.EntityKind `yaml:"kinds"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(builtin)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is Default for wiring code that cannot continue without it.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load parses a YAML catalog and checks it is self-consistent.
func Load(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Kinds) == 0 {
		return nil, fmt.Errorf("catalog declares no kinds")
	}

	c := &Catalog{
		kinds: make(map[string]*model.EntityKind, len(f.Kinds)),
		rules: make(map[string]*compiledRules, len(f.Kinds)),
	}
	for i := range f.Kinds {
		k := &f.Kinds[i]
		if k.Name == "" {
			return nil, fmt.Errorf("kind #%d has no name", i)
		}
		if _, dup := c.kinds[k.Name]; dup {
			return nil, fmt.Errorf("duplicate kind %q", k.Name)
		}
		if k.Label == "" {
			k.Label = k.Name
		}
		c.kinds[k.Name] = k
	}

	for _, k := range c.kinds {
		if err := c.checkFields(k.Name, k.Fields, true); err != nil {
			return nil, err
		}
		for _, s := range k.SearchFields {
			if _, ok := k.Field(s); !ok {
				return nil, fmt.Errorf("kind %s: search field %q is not declared", k.Name, s)
			}
		}
		rules, err := compileRules(k.Rules)
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", k.Name, err)
		}
		c.rules[k.Name] = rules
	}
	return c, nil
}

func (c *Catalog) checkFields(kind string, fields []model.FieldSpec, topLevel bool) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("kind %s: field without name", kind)
		}
		if seen[f.Name] {
			return fmt.Errorf("kind %s: duplicate field %q", kind, f.Name)
		}
		seen[f.Name] = true
		if topLevel && isReserved(f.Name) {
			return fmt.Errorf("kind %s: field %q is server-managed", kind, f.Name)
		}
		if !model.KnownFieldTypes[f.Type] {
			return fmt.Errorf("kind %s: field %s has unknown type %q", kind, f.Name, f.Type)
		}
		if f.Pattern != "" && patternTags[f.Pattern] == "" {
			return fmt.Errorf("kind %s: field %s has unknown pattern %q", kind, f.Name, f.Pattern)
		}
		switch f.Type {
		case model.FieldEnum:
			if len(f.Options) == 0 {
				return fmt.Errorf("kind %s: enum field %s has no options", kind, f.Name)
			}
		case model.FieldRef:
			if _, ok := c.kinds[f.Ref]; !ok {
				return fmt.Errorf("kind %s: field %s references unknown kind %q", kind, f.Name, f.Ref)
			}
		case model.FieldObjects:
			if len(f.Items) == 0 {
				return fmt.Errorf("kind %s: objects field %s declares no items", kind, f.Name)
			}
			if err := c.checkFields(kind, f.Items, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// Kind looks up an entity kind by name.
func (c *Catalog) Kind(name string) (*model.EntityKind, bool) {
	k, ok := c.kinds[name]
	return k, ok
}

// Kinds returns every kind sorted by name.
func (c *Catalog) Kinds() []*model.EntityKind {
	out := make([]*model.EntityKind, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Writable returns the kinds the generic mutation API may write, sorted by name.
func (c *Catalog) Writable() []*model.EntityKind {
	var out []*model.EntityKind
	for _, k := range c.Kinds() {
		if !k.ReadOnly {
			out = append(out, k)
		}
	}
	return out
}

func isReserved(key string) bool {
	for _, r := range model.ReservedKeys {
		if r == key {
			return true
		}
	}
	return false
}
