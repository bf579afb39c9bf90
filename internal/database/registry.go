package database

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the immutable map from logical database name to its
// configuration. Lookups are case-insensitive; the map is copied at
// construction and never mutated afterwards, so concurrent reads need no
// locking.
type Registry struct {
	configs map[string]*LogicalConfig // keyed by lowercased name
}

// Info is the introspection triple returned by List.
type Info struct {
	Name      string     `json:"name"`
	Engine    EngineType `json:"engine"`
	IsDefault bool       `json:"isDefault"`
}

// NewRegistry validates the supplied configurations and builds the
// registry. It enforces case-insensitive name uniqueness and at most one
// default per engine type.
func NewRegistry(configs map[string]LogicalConfig) (*Registry, error) {
	r := &Registry{configs: make(map[string]*LogicalConfig, len(configs))}

	defaults := make(map[EngineType]string)
	for name, cfg := range configs {
		cfg := cfg
		if cfg.Name == "" {
			cfg.Name = name
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		key := strings.ToLower(cfg.Name)
		if _, exists := r.configs[key]; exists {
			return nil, NewConfigurationError(cfg.Name, "duplicate logical database name (names are case-insensitive)")
		}
		if cfg.IsDefault {
			if other, exists := defaults[cfg.Engine]; exists {
				return nil, NewConfigurationError(cfg.Name,
					fmt.Sprintf("engine %s already has a default database (%s)", cfg.Engine, other))
			}
			defaults[cfg.Engine] = cfg.Name
		}

		r.configs[key] = &cfg
	}

	return r, nil
}

// Resolve looks up a logical database by name. An empty name selects the
// default: the relational default when one exists, otherwise the document
// default. Unknown names never fall back to the default.
func (r *Registry) Resolve(name string) (*LogicalConfig, error) {
	if name == "" {
		return r.resolveDefault()
	}

	cfg, exists := r.configs[strings.ToLower(name)]
	if !exists {
		return nil, NewUnknownDatabaseError(name)
	}
	return cfg, nil
}

// resolveDefault applies the cross-engine tie-break: when both a relational
// and a document default are registered, the relational one wins.
func (r *Registry) resolveDefault() (*LogicalConfig, error) {
	var documentDefault *LogicalConfig
	for _, cfg := range r.configs {
		if !cfg.IsDefault {
			continue
		}
		if cfg.Engine == EngineRelational {
			return cfg, nil
		}
		documentDefault = cfg
	}

	if documentDefault != nil {
		return documentDefault, nil
	}
	return nil, NewConfigurationError("", "no default database is registered")
}

// Has reports whether a logical database name is registered.
func (r *Registry) Has(name string) bool {
	_, exists := r.configs[strings.ToLower(name)]
	return exists
}

// EngineOf returns the engine type of a registered logical database.
func (r *Registry) EngineOf(name string) (EngineType, error) {
	cfg, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	return cfg.Engine, nil
}

// List returns the (name, engine, isDefault) triples of every registered
// database, sorted by name.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.configs))
	for _, cfg := range r.configs {
		infos = append(infos, Info{
			Name:      cfg.Name,
			Engine:    cfg.Engine,
			IsDefault: cfg.IsDefault,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
