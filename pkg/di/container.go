package di

import (
	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/querycache"
	"github.com/goliatone/go-query-cache/repositorycache"
)

// Container provides dependency injection for cache related components.
// It manages the singleton store and query cache, and provides factory
// methods for cached repositories and invalidation hooks.
type Container struct {
	store  cache.Store
	cache  *querycache.Cache
	config querycache.Config
}

// NewContainer creates a new DI container with the provided configuration.
// It builds the default tag store from config.Store and the query cache on
// top of it.
func NewContainer(config querycache.Config, opts ...querycache.Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := cache.NewStore(config.Store)
	if err != nil {
		return nil, err
	}

	qc, err := querycache.New(config, store, opts...)
	if err != nil {
		return nil, err
	}

	return &Container{
		store:  store,
		cache:  qc,
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults(opts ...querycache.Option) (*Container, error) {
	return NewContainer(querycache.DefaultConfig(), opts...)
}

// NewContainerFromFile loads a TOML or YAML configuration file and builds
// a container from it.
func NewContainerFromFile(path string, opts ...querycache.Option) (*Container, error) {
	config, err := querycache.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(config, opts...)
}

// Store returns the singleton store instance.
func (c *Container) Store() cache.Store {
	return c.store
}

// Cache returns the singleton query cache.
func (c *Container) Cache() *querycache.Cache {
	return c.cache
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() querycache.Config {
	return c.config
}

// InvalidationHook returns a bun query hook that invalidates the cache
// after successful writes against database. Register it with
// db.AddQueryHook.
func (c *Container) InvalidationHook(database string) *querycache.InvalidationHook {
	return querycache.NewInvalidationHook(c.cache, database)
}

// NewCachedRepository creates a new cached repository that wraps the provided base repository.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, container.cache, opts...)
}
