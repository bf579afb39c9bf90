package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relationalConfig(name string, isDefault bool) LogicalConfig {
	return LogicalConfig{
		Name:   name,
		Engine: EngineRelational,
		Relational: &RelationalParams{
			Host:         "localhost",
			Port:         5432,
			Username:     "app",
			Password:     "secret",
			DatabaseName: name,
		},
		IsDefault:    isDefault,
		Capabilities: DefaultCapabilities(),
	}
}

func documentConfig(name string, isDefault bool) LogicalConfig {
	return LogicalConfig{
		Name:   name,
		Engine: EngineDocument,
		Document: &DocumentParams{
			URI:          "mongodb://localhost:27017",
			DatabaseName: name,
		},
		IsDefault:    isDefault,
		Capabilities: DefaultCapabilities(),
	}
}

func TestRegistryResolve(t *testing.T) {
	registry, err := NewRegistry(map[string]LogicalConfig{
		"trends":    relationalConfig("trends", true),
		"ludafarma": documentConfig("ludafarma", true),
	})
	require.NoError(t, err)

	t.Run("known name", func(t *testing.T) {
		cfg, err := registry.Resolve("ludafarma")
		require.NoError(t, err)
		assert.Equal(t, "ludafarma", cfg.Name)
		assert.Equal(t, EngineDocument, cfg.Engine)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		cfg, err := registry.Resolve("TRENDS")
		require.NoError(t, err)
		assert.Equal(t, "trends", cfg.Name)
	})

	t.Run("unknown name never falls back to default", func(t *testing.T) {
		_, err := registry.Resolve("unknown_db")
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), "unknown_db")
	})

	t.Run("relational default wins the cross-engine tie", func(t *testing.T) {
		cfg, err := registry.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "trends", cfg.Name)
		assert.Equal(t, EngineRelational, cfg.Engine)
	})

	t.Run("identity is stable across lookups", func(t *testing.T) {
		first, err := registry.Resolve("trends")
		require.NoError(t, err)
		second, err := registry.Resolve("trends")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})
}

func TestRegistryDefaultResolution(t *testing.T) {
	t.Run("lone document default is selected", func(t *testing.T) {
		registry, err := NewRegistry(map[string]LogicalConfig{
			"ludafarma": documentConfig("ludafarma", true),
			"archive":   documentConfig("archive", false),
		})
		require.NoError(t, err)

		cfg, err := registry.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "ludafarma", cfg.Name)
	})

	t.Run("no default anywhere is a configuration error", func(t *testing.T) {
		registry, err := NewRegistry(map[string]LogicalConfig{
			"trends": relationalConfig("trends", false),
		})
		require.NoError(t, err)

		_, err = registry.Resolve("")
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})
}

func TestRegistryValidation(t *testing.T) {
	t.Run("two defaults for one engine are rejected", func(t *testing.T) {
		_, err := NewRegistry(map[string]LogicalConfig{
			"first":  relationalConfig("first", true),
			"second": relationalConfig("second", true),
		})
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("names colliding case-insensitively are rejected", func(t *testing.T) {
		_, err := NewRegistry(map[string]LogicalConfig{
			"trends": relationalConfig("trends", false),
			"TRENDS": relationalConfig("TRENDS", false),
		})
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("relational config without parameters is rejected", func(t *testing.T) {
		_, err := NewRegistry(map[string]LogicalConfig{
			"broken": {Name: "broken", Engine: EngineRelational},
		})
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("document config without target database is rejected", func(t *testing.T) {
		_, err := NewRegistry(map[string]LogicalConfig{
			"broken": {
				Name:     "broken",
				Engine:   EngineDocument,
				Document: &DocumentParams{URI: "mongodb://localhost:27017"},
			},
		})
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})
}

func TestRegistryIntrospection(t *testing.T) {
	registry, err := NewRegistry(map[string]LogicalConfig{
		"trends":    relationalConfig("trends", true),
		"ludafarma": documentConfig("ludafarma", false),
	})
	require.NoError(t, err)

	t.Run("list is sorted and complete", func(t *testing.T) {
		infos := registry.List()
		require.Len(t, infos, 2)
		assert.Equal(t, "ludafarma", infos[0].Name)
		assert.Equal(t, "trends", infos[1].Name)
		assert.True(t, infos[1].IsDefault)
	})

	t.Run("has", func(t *testing.T) {
		assert.True(t, registry.Has("Trends"))
		assert.False(t, registry.Has("unknown_db"))
	})

	t.Run("engine of", func(t *testing.T) {
		engine, err := registry.EngineOf("ludafarma")
		require.NoError(t, err)
		assert.Equal(t, EngineDocument, engine)
	})
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		input    string
		expected EngineType
		ok       bool
	}{
		{"relational", EngineRelational, true},
		{"postgres", EngineRelational, true},
		{"SQL", EngineRelational, true},
		{"document", EngineDocument, true},
		{"mongodb", EngineDocument, true},
		{"graph", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			engine, ok := ParseEngine(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, engine)
		})
	}
}

func TestCapabilities(t *testing.T) {
	caps := DefaultCapabilities()
	assert.True(t, caps.Allows(CapabilityRead))
	assert.False(t, caps.Allows(CapabilityInsert))
	assert.False(t, caps.Allows(CapabilityUpdate))
	assert.False(t, caps.Allows(CapabilityDelete))

	caps.Delete = true
	assert.True(t, caps.Allows(CapabilityDelete))
}
