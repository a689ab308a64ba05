package querycache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/reflector"
)

// Config is the immutable configuration injected into a Cache.
type Config struct {
	// Active turns caching on. An inactive cache runs every operation
	// directly.
	Active bool `json:"active"`

	// Database names the connection used when a call does not name one.
	Database string `json:"database"`

	// Prefix namespaces every key written to the store.
	Prefix string `json:"prefix"`

	// ConsiderRows enables row level tags. When false every read is tagged
	// per table.
	ConsiderRows bool `json:"consider_rows"`

	// ViewTables maps a view to the base tables backing it.
	ViewTables map[string][]string `json:"view_tables"`

	// PrimaryKey is the column whose predicates yield row ids.
	PrimaryKey string `json:"primary_key"`

	// PrimaryKeys overrides PrimaryKey per table.
	PrimaryKeys map[string]string `json:"primary_keys"`

	// IncludeTables, when not empty, limits caching to operations that only
	// touch these tables.
	IncludeTables []string `json:"include_tables"`

	// ExcludeTables disables caching for operations touching any of these.
	ExcludeTables []string `json:"exclude_tables"`

	// Store configures the default tag store.
	Store cache.Config `json:"store"`
}

// DefaultConfig returns an active configuration with row level tagging.
func DefaultConfig() Config {
	return Config{
		Active:       true,
		Database:     "default",
		Prefix:       "querycache:",
		ConsiderRows: true,
		PrimaryKey:   reflector.DefaultPrimaryKey,
		Store:        cache.DefaultConfig(),
	}
}

// Validate checks the configuration. Errors are reported per field.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.PrimaryKey, validation.Required),
		validation.Field(&c.ViewTables, validation.Each(validation.Required)),
		validation.Field(&c.PrimaryKeys, validation.Each(validation.Required)),
		validation.Field(&c.IncludeTables, validation.Each(validation.Required)),
		validation.Field(&c.ExcludeTables, validation.Each(validation.Required)),
		validation.Field(&c.Store),
	)
}

// Resolver returns the table resolver for the configured views.
func (c Config) Resolver() reflector.TableResolver {
	return reflector.NewTableResolver(c.ViewTables)
}

// QueryOptions returns the reflector options for structured queries.
func (c Config) QueryOptions() reflector.QueryOptions {
	return reflector.QueryOptions{
		Resolver:    c.Resolver(),
		PrimaryKey:  c.PrimaryKey,
		PrimaryKeys: c.PrimaryKeys,
	}
}

type fileConfig struct {
	Active        *bool               `toml:"active" yaml:"active"`
	Database      string              `toml:"database" yaml:"database"`
	Prefix        *string             `toml:"prefix" yaml:"prefix"`
	ConsiderRows  *bool               `toml:"consider_rows" yaml:"consider_rows"`
	ViewTables    map[string][]string `toml:"view_tables" yaml:"view_tables"`
	PrimaryKey    string              `toml:"primary_key" yaml:"primary_key"`
	PrimaryKeys   map[string]string   `toml:"primary_keys" yaml:"primary_keys"`
	IncludeTables []string            `toml:"include_tables" yaml:"include_tables"`
	ExcludeTables []string            `toml:"exclude_tables" yaml:"exclude_tables"`
	Store         fileStoreConfig     `toml:"store" yaml:"store"`
}

type fileStoreConfig struct {
	Capacity           int    `toml:"capacity" yaml:"capacity"`
	NumShards          int    `toml:"num_shards" yaml:"num_shards"`
	TTL                string `toml:"ttl" yaml:"ttl"`
	EvictionPercentage int    `toml:"eviction_percentage" yaml:"eviction_percentage"`
	EvictionInterval   string `toml:"eviction_interval" yaml:"eviction_interval"`
}

// LoadConfig reads a TOML or YAML file, chosen by extension, and applies it
// over DefaultConfig. Keys missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("querycache: read config %s: %w", path, err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("querycache: parse config %s: %w", path, err)
	}

	cfg, err := raw.apply(DefaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("querycache: config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("querycache: config %s: %w", path, err)
	}
	return cfg, nil
}

func (f fileConfig) apply(cfg Config) (Config, error) {
	if f.Active != nil {
		cfg.Active = *f.Active
	}
	if f.Database != "" {
		cfg.Database = f.Database
	}
	if f.Prefix != nil {
		cfg.Prefix = *f.Prefix
	}
	if f.ConsiderRows != nil {
		cfg.ConsiderRows = *f.ConsiderRows
	}
	if f.ViewTables != nil {
		cfg.ViewTables = f.ViewTables
	}
	if f.PrimaryKey != "" {
		cfg.PrimaryKey = f.PrimaryKey
	}
	if f.PrimaryKeys != nil {
		cfg.PrimaryKeys = f.PrimaryKeys
	}
	if f.IncludeTables != nil {
		cfg.IncludeTables = f.IncludeTables
	}
	if f.ExcludeTables != nil {
		cfg.ExcludeTables = f.ExcludeTables
	}

	s := f.Store
	if s.Capacity != 0 {
		cfg.Store.Capacity = s.Capacity
	}
	if s.NumShards != 0 {
		cfg.Store.NumShards = s.NumShards
	}
	if s.EvictionPercentage != 0 {
		cfg.Store.EvictionPercentage = s.EvictionPercentage
	}
	if s.TTL != "" {
		d, err := time.ParseDuration(s.TTL)
		if err != nil {
			return cfg, fmt.Errorf("store.ttl: %w", err)
		}
		cfg.Store.TTL = d
	}
	if s.EvictionInterval != "" {
		d, err := time.ParseDuration(s.EvictionInterval)
		if err != nil {
			return cfg, fmt.Errorf("store.eviction_interval: %w", err)
		}
		cfg.Store.EvictionInterval = d
	}
	return cfg, nil
}
