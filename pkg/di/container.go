package di

import (
	"fmt"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-criteria-cache/cache"
	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/goliatone/go-criteria-cache/pkg/convert"
	"github.com/goliatone/go-criteria-cache/querycache"
	"github.com/goliatone/go-criteria-cache/repositorycache"
	"github.com/goliatone/go-criteria-cache/search"
	"github.com/goliatone/go-criteria-cache/store"
	"github.com/uptrace/bun"
)

// Container wires the engine once at startup and hands the shared pieces to
// constructors. It holds no package-level state; every process builds its
// own.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	codecs        *convert.Registry
	queryCache    *querycache.QueryCache
	resolver      *criteria.Resolver
	mapper        *criteria.Mapper
	synthesizer   *criteria.Synthesizer
	db            *bun.DB
	entities      *criteria.Entities
	executor      store.Executor
	logger        *slog.Logger
	config        cache.Config
}

// Option configures a Container.
type Option func(*Container) error

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithDB attaches a database for entity binding and query execution.
func WithDB(db *bun.DB) Option {
	return func(c *Container) error {
		c.db = db
		return nil
	}
}

// WithCacheService replaces the backend built from the config.
func WithCacheService(s cache.CacheService) Option {
	return func(c *Container) error {
		c.cacheService = s
		return nil
	}
}

// WithOperatorTokens replaces the default operator table. Duplicate
// suffixes fail the container construction.
func WithOperatorTokens(tokens ...criteria.Token) Option {
	return func(c *Container) error {
		r, err := criteria.NewResolver(tokens...)
		if err != nil {
			return err
		}
		c.resolver = r
		return nil
	}
}

// WithMapperOptions configures the field mapper.
func WithMapperOptions(opts ...criteria.MapperOption) Option {
	return func(c *Container) error {
		c.mapper = criteria.NewMapper(opts...)
		return nil
	}
}

// NewContainer creates a container with the provided cache configuration.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	c := &Container{
		codecs:   convert.NewDefaultRegistry(),
		resolver: criteria.NewDefaultResolver(),
		mapper:   criteria.NewMapper(),
		logger:   slog.Default(),
		config:   config,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.cacheService == nil {
		svc, err := cache.NewCacheService(config)
		if err != nil {
			return nil, err
		}
		c.cacheService = svc
	}

	c.keySerializer = cache.NewKeySerializer(c.codecs)
	c.synthesizer = criteria.NewSynthesizer(c.resolver, c.mapper)
	c.queryCache = querycache.New(c.cacheService,
		querycache.WithKeySerializer(c.keySerializer),
		querycache.WithLogger(c.logger),
	)

	if c.db != nil {
		c.entities = criteria.NewEntities(c.db)
		c.executor = store.NewBunExecutor(c.db, c.logger)
	}

	return c, nil
}

// NewContainerWithDefaults creates a container using the default cache
// configuration and no database.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// CacheService returns the cache backend.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the canonical key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Codecs returns the tagged value codec registry.
func (c *Container) Codecs() *convert.Registry {
	return c.codecs
}

// QueryCache returns the shared query cache.
func (c *Container) QueryCache() *querycache.QueryCache {
	return c.queryCache
}

// Synthesizer returns the predicate synthesizer.
func (c *Container) Synthesizer() *criteria.Synthesizer {
	return c.synthesizer
}

// Mapper returns the field mapper.
func (c *Container) Mapper() *criteria.Mapper {
	return c.mapper
}

// DB returns the attached database, nil when none was configured.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Entities returns the table binding registry, nil without a database.
func (c *Container) Entities() *criteria.Entities {
	return c.entities
}

// Executor returns the store executor, nil without a database.
func (c *Container) Executor() store.Executor {
	return c.executor
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewSearchService binds T to its table and returns a cached search service.
// Since Go methods cannot have type parameters, this is a package-level
// function: NewSearchService[Menu](container).
func NewSearchService[T any](c *Container, opts ...search.Option) (*search.Service[T], error) {
	if c.entities == nil {
		return nil, fmt.Errorf("di: search service for %T requires a database", *new(T))
	}
	entity, err := criteria.EntityOf[T](c.entities)
	if err != nil {
		return nil, err
	}
	opts = append([]search.Option{
		search.WithSynthesizer(c.synthesizer),
		search.WithLogger(c.logger),
	}, opts...)
	return search.NewService[T](entity, c.executor, c.queryCache, opts...), nil
}

// NewCachedRepository wraps base with the shared query cache.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](c *Container, base repository.Repository[T], opts ...repositorycache.Option[T]) *repositorycache.CachedRepository[T] {
	opts = append([]repositorycache.Option[T]{repositorycache.WithLogger[T](c.logger)}, opts...)
	return repositorycache.New(base, c.queryCache, opts...)
}
