// Package config loads the logical database registry configuration from a
// YAML file with environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ludafarma/dbgate/internal/database"
)

// EnvPrefix is the prefix of environment variables that override file
// values, e.g. DBGATE_DATABASES_TRENDS_HOST.
const EnvPrefix = "DBGATE_"

// File is the on-disk configuration shape.
type File struct {
	Databases map[string]Database `koanf:"databases"`
}

// Database is one logical database entry. Relational entries use
// host/port/username/password/database; document entries use uri/database.
type Database struct {
	Engine   string `koanf:"engine"`
	Default  bool   `koanf:"default"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSL      bool   `koanf:"ssl"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"maxconns"`
	URI      string `koanf:"uri"`

	Permissions Permissions `koanf:"permissions"`
}

// Permissions are the write capabilities granted to the entry. Read is
// always granted and has no flag.
type Permissions struct {
	Insert bool `koanf:"insert"`
	Update bool `koanf:"update"`
	Delete bool `koanf:"delete"`
}

// Load reads the configuration file, applies environment overrides and
// converts the entries into registry configurations.
func Load(path string) (map[string]database.LogicalConfig, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, database.NewConfigurationError("", fmt.Sprintf("failed to load %s: %v", path, err))
	}

	// DBGATE_DATABASES_TRENDS_HOST -> databases.trends.host
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, database.NewConfigurationError("", fmt.Sprintf("failed to load environment overrides: %v", err))
	}

	var cfg File
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, database.NewConfigurationError("", fmt.Sprintf("failed to parse configuration: %v", err))
	}

	return Convert(cfg)
}

// Convert turns the file shape into validated registry configurations.
func Convert(cfg File) (map[string]database.LogicalConfig, error) {
	if len(cfg.Databases) == 0 {
		return nil, database.NewConfigurationError("", "no logical databases are configured")
	}

	configs := make(map[string]database.LogicalConfig, len(cfg.Databases))
	for name, entry := range cfg.Databases {
		engine, ok := database.ParseEngine(entry.Engine)
		if !ok {
			return nil, database.NewConfigurationError(name, fmt.Sprintf("unknown engine %q", entry.Engine))
		}

		capabilities := database.DefaultCapabilities()
		capabilities.Insert = entry.Permissions.Insert
		capabilities.Update = entry.Permissions.Update
		capabilities.Delete = entry.Permissions.Delete

		logical := database.LogicalConfig{
			Name:         name,
			Engine:       engine,
			IsDefault:    entry.Default,
			Capabilities: capabilities,
		}

		switch engine {
		case database.EngineRelational:
			logical.Relational = &database.RelationalParams{
				Host:         entry.Host,
				Port:         entry.Port,
				Username:     entry.Username,
				Password:     entry.Password,
				DatabaseName: entry.Database,
				SSL:          entry.SSL,
				SSLMode:      entry.SSLMode,
				MaxConns:     entry.MaxConns,
			}
		case database.EngineDocument:
			logical.Document = &database.DocumentParams{
				URI:          entry.URI,
				DatabaseName: entry.Database,
			}
		}

		if err := logical.Validate(); err != nil {
			return nil, err
		}
		configs[name] = logical
	}

	return configs, nil
}
