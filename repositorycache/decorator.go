package repositorycache

import (
	"context"
	"errors"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/goliatone/go-criteria-cache/querycache"
	"github.com/goliatone/go-criteria-cache/search"
	"github.com/uptrace/bun"
)

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// ErrSearchNotConfigured is returned by Search when no search service was
// attached with WithSearch.
var ErrSearchNotConfigured = errors.New("repositorycache: search not configured")

// Read kinds used as cache key ingredients.
const (
	kindGet             = "get"
	kindGetByID         = "get_by_id"
	kindGetByIdentifier = "get_by_identifier"
	kindList            = "list"
	kindCount           = "count_criteria"
)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `msgpack:"records"`
	Total   int `msgpack:"total"`
}

// CachedRepository decorates a base repository. Reads are served from the
// query cache namespace of T; every successful write invalidates that
// namespace after the write returns.
type CachedRepository[T any] struct {
	base      repository.Repository[T]
	cache     *querycache.QueryCache
	search    *search.Service[T]
	namespace string
	logger    *slog.Logger
}

// Option configures a CachedRepository.
type Option[T any] func(*CachedRepository[T])

// WithNamespace overrides the namespace derived from T.
func WithNamespace[T any](ns string) Option[T] {
	return func(c *CachedRepository[T]) { c.namespace = ns }
}

// WithSearch attaches a search service and adopts its namespace so search
// results are dropped by the same writes.
func WithSearch[T any](svc *search.Service[T]) Option[T] {
	return func(c *CachedRepository[T]) {
		c.search = svc
		if svc != nil {
			c.namespace = svc.Namespace()
		}
	}
}

// WithLogger sets the logger.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(c *CachedRepository[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a new CachedRepository that wraps the base repository with caching
func New[T any](base repository.Repository[T], qc *querycache.QueryCache, opts ...Option[T]) *CachedRepository[T] {
	c := &CachedRepository[T]{
		base:      base,
		cache:     qc,
		namespace: querycache.NamespaceFor[T](),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Namespace returns the cache namespace written by this repository.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// Search runs a criteria search through the attached search service.
func (c *CachedRepository[T]) Search(ctx context.Context, request any, page criteria.Pageable, skip ...string) (search.Page[T], error) {
	if c.search == nil {
		return search.Page[T]{}, ErrSearchNotConfigured
	}
	return c.search.Search(ctx, request, page, skip...)
}

func (c *CachedRepository[T]) key(kind string, parts ...any) querycache.Key {
	return querycache.Key{Namespace: c.namespace, Kind: kind, Parts: parts}
}

// Get retrieves a single record. Reads without criteria are cached;
// criteria functions are opaque, so reads with criteria go to the base
// repository. Use GetWhere for cached filtered reads.
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	if len(criteria) > 0 {
		return c.base.Get(ctx, criteria...)
	}
	return querycache.GetOrCompute(ctx, c.cache, c.key(kindGet), func(ctx context.Context) (T, error) {
		return c.base.Get(ctx)
	})
}

// GetByID retrieves a record by ID, cached unless criteria are given.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	if len(criteria) > 0 {
		return c.base.GetByID(ctx, id, criteria...)
	}
	return querycache.GetOrCompute(ctx, c.cache, c.key(kindGetByID, id), func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id)
	})
}

// List retrieves records and their total, cached unless criteria are given.
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	if len(criteria) > 0 {
		return c.base.List(ctx, criteria...)
	}
	return c.list(ctx, c.key(kindList))
}

// Count returns the number of records, cached unless criteria are given.
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	if len(criteria) > 0 {
		return c.base.Count(ctx, criteria...)
	}
	return querycache.GetOrCompute(ctx, c.cache, c.key(kindCount), func(ctx context.Context) (int, error) {
		return c.base.Count(ctx)
	})
}

// GetByIdentifier retrieves a record by identifier, cached unless criteria
// are given.
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	if len(criteria) > 0 {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	}
	return querycache.GetOrCompute(ctx, c.cache, c.key(kindGetByIdentifier, identifier), func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier)
	})
}

// GetWhere retrieves a single record matching where. The predicates are
// the cache key, so equal filters share an entry.
func (c *CachedRepository[T]) GetWhere(ctx context.Context, where criteria.Criteria) (T, error) {
	return querycache.GetOrCompute(ctx, c.cache, c.key(kindGet, where.Preds), func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, where.Select())
	})
}

// ListWhere retrieves the records matching where and their total.
func (c *CachedRepository[T]) ListWhere(ctx context.Context, where criteria.Criteria) ([]T, int, error) {
	return c.list(ctx, c.key(kindList, where.Preds), where.Select())
}

// CountWhere returns the number of records matching where.
func (c *CachedRepository[T]) CountWhere(ctx context.Context, where criteria.Criteria) (int, error) {
	return querycache.GetOrCompute(ctx, c.cache, c.key(kindCount, where.Preds), func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, where.Select())
	})
}

func (c *CachedRepository[T]) list(ctx context.Context, key querycache.Key, sel ...repository.SelectCriteria) ([]T, int, error) {
	res, err := querycache.GetOrCompute(ctx, c.cache, key, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, sel...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Create creates a new record. Write operations pass through to base repository
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	return result, c.afterWrite(ctx, err)
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	return result, c.afterWrite(ctx, err)
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	return result, c.afterWrite(ctx, err)
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	return result, c.afterWrite(ctx, err)
}

// GetOrCreate gets a record or creates it if it doesn't exist
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	return result, c.afterWrite(ctx, err)
}

// GetOrCreateTx gets a record or creates it if it doesn't exist within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	return result, c.afterWrite(ctx, err)
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	return result, c.afterWrite(ctx, err)
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	return result, c.afterWrite(ctx, err)
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	return result, c.afterWrite(ctx, err)
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	return result, c.afterWrite(ctx, err)
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	return result, c.afterWrite(ctx, err)
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	return result, c.afterWrite(ctx, err)
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	return result, c.afterWrite(ctx, err)
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	return result, c.afterWrite(ctx, err)
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	return c.afterWrite(ctx, c.base.Delete(ctx, record))
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.afterWrite(ctx, c.base.DeleteTx(ctx, tx, record))
}

// DeleteMany deletes multiple records based on criteria
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.afterWrite(ctx, c.base.DeleteMany(ctx, criteria...))
}

// DeleteManyTx deletes multiple records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.afterWrite(ctx, c.base.DeleteManyTx(ctx, tx, criteria...))
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.afterWrite(ctx, c.base.DeleteWhere(ctx, criteria...))
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.afterWrite(ctx, c.base.DeleteWhereTx(ctx, tx, criteria...))
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return c.afterWrite(ctx, c.base.ForceDelete(ctx, record))
}

// ForceDeleteTx force deletes a record within a transaction (bypassing soft delete)
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.afterWrite(ctx, c.base.ForceDeleteTx(ctx, tx, record))
}

// GetTx retrieves a single record within a transaction. Transactional reads
// bypass the cache.
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx retrieves a record by ID with optional criteria within a transaction
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx retrieves multiple records using the provided criteria within a transaction
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

// CountTx returns the number of records matching the criteria within a transaction
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx retrieves a record by identifier with optional criteria within a transaction
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw executes a raw SQL query and returns the results
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction and returns the results
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// afterWrite invalidates the namespace, plus any extra namespaces attached
// to ctx, when the write succeeded. Invalidation failures are logged; the
// write itself already happened.
func (c *CachedRepository[T]) afterWrite(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	for _, ns := range append([]string{c.namespace}, invalidationsFromContext(ctx)...) {
		if ierr := c.cache.Invalidate(ctx, ns); ierr != nil {
			c.logger.Warn("cache invalidation after write failed", "namespace", ns, "error", ierr)
		}
	}
	return nil
}
