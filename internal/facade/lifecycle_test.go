package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludafarma/dbgate/internal/database"
)

func controllerConfigs() map[string]database.LogicalConfig {
	return map[string]database.LogicalConfig{
		"trends": {
			Name:   "trends",
			Engine: database.EngineRelational,
			Relational: &database.RelationalParams{
				Host:         "localhost",
				Port:         5432,
				DatabaseName: "trends",
			},
			IsDefault:    true,
			Capabilities: database.DefaultCapabilities(),
		},
		"ludafarma": {
			Name:   "ludafarma",
			Engine: database.EngineDocument,
			Document: &database.DocumentParams{
				URI:          "mongodb://localhost:27017",
				DatabaseName: "ludafarma",
			},
			Capabilities: database.DefaultCapabilities(),
		},
	}
}

func TestControllerReturnsSameInstance(t *testing.T) {
	c := NewController(controllerConfigs())

	first, err := c.Facade()
	require.NoError(t, err)
	second, err := c.Facade()
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestControllerReset(t *testing.T) {
	c := NewController(controllerConfigs())

	first, err := c.Facade()
	require.NoError(t, err)

	require.NoError(t, c.Reset(context.Background()))

	second, err := c.Facade()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestControllerResetWithoutFacadeIsNoop(t *testing.T) {
	c := NewController(controllerConfigs())
	require.NoError(t, c.Reset(context.Background()))
}

func TestControllerRejectsInvalidConfigs(t *testing.T) {
	c := NewController(map[string]database.LogicalConfig{
		"broken": {Name: "broken", Engine: database.EngineRelational},
	})

	_, err := c.Facade()
	require.Error(t, err)
	assert.True(t, database.IsConfigurationError(err))
}
