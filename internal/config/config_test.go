package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludafarma/dbgate/internal/database"
)

const sampleYAML = `databases:
  trends:
    engine: postgres
    default: true
    host: db.internal
    port: 5432
    username: app
    password: secret
    database: trends
    sslmode: require
    maxconns: 10
  ludafarma:
    engine: mongodb
    uri: mongodb://mongo.internal:27017
    database: ludafarma
    permissions:
      insert: true
      delete: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	configs, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	trends := configs["trends"]
	assert.Equal(t, database.EngineRelational, trends.Engine)
	assert.True(t, trends.IsDefault)
	require.NotNil(t, trends.Relational)
	assert.Equal(t, "db.internal", trends.Relational.Host)
	assert.Equal(t, 5432, trends.Relational.Port)
	assert.Equal(t, "require", trends.Relational.SSLMode)
	assert.Equal(t, int32(10), trends.Relational.MaxConns)
	assert.True(t, trends.Capabilities.Read)
	assert.False(t, trends.Capabilities.Insert)

	ludafarma := configs["ludafarma"]
	assert.Equal(t, database.EngineDocument, ludafarma.Engine)
	require.NotNil(t, ludafarma.Document)
	assert.Equal(t, "mongodb://mongo.internal:27017", ludafarma.Document.URI)
	assert.Equal(t, "ludafarma", ludafarma.Document.DatabaseName)
	assert.True(t, ludafarma.Capabilities.Insert)
	assert.False(t, ludafarma.Capabilities.Update)
	assert.True(t, ludafarma.Capabilities.Delete)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("DBGATE_DATABASES_TRENDS_HOST", "replica.internal")
	t.Setenv("DBGATE_DATABASES_TRENDS_PASSWORD", "rotated")

	configs, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	trends := configs["trends"]
	assert.Equal(t, "replica.internal", trends.Relational.Host)
	assert.Equal(t, "rotated", trends.Relational.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, database.IsConfigurationError(err))
}

func TestConvertRejectsUnknownEngine(t *testing.T) {
	_, err := Convert(File{Databases: map[string]Database{
		"legacy": {Engine: "dbase", Host: "localhost", Database: "legacy"},
	}})
	require.Error(t, err)
	assert.True(t, database.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "dbase")
}

func TestConvertRejectsIncompleteEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry Database
	}{
		{"relational without host", Database{Engine: "postgres", Database: "x"}},
		{"relational without database", Database{Engine: "postgres", Host: "localhost"}},
		{"document without uri", Database{Engine: "mongodb", Database: "x"}},
		{"document without database", Database{Engine: "mongodb", URI: "mongodb://localhost:27017"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(File{Databases: map[string]Database{"entry": tt.entry}})
			require.Error(t, err)
			assert.True(t, database.IsConfigurationError(err))
		})
	}
}

func TestConvertRejectsEmptyConfig(t *testing.T) {
	_, err := Convert(File{})
	require.Error(t, err)
	assert.True(t, database.IsConfigurationError(err))
}
