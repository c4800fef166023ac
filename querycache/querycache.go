package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/goliatone/go-criteria-cache/cache"
	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/jinzhu/inflection"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// NamespaceSuffix is appended to a service identity to form its namespace.
const NamespaceSuffix = ".cache"

// ErrMaterialize reports a result that could not be encoded for storage or
// decoded on replay.
var ErrMaterialize = errors.New("querycache: materialize")

// Key identifies one cached result. Two keys address the same entry exactly
// when namespace, kind and the canonical form of parts are equal.
type Key struct {
	Namespace string
	Kind      string
	Parts     []any
}

// SearchKey keys the rows of q for page.
func SearchKey(namespace string, q criteria.Query, page criteria.Pageable) Key {
	return Key{Namespace: namespace, Kind: cache.KindSearch, Parts: []any{q.SQL(), q.Params(), page}}
}

// CountKey keys the total of q. Pagination and order are not ingredients.
func CountKey(namespace string, q criteria.Query) Key {
	return Key{Namespace: namespace, Kind: cache.KindCount, Parts: []any{q.CountSQL(), q.Params()}}
}

// Stats are per namespace counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	Entries       int
}

// namespace holds counters only. Entries live in the backend and are
// addressed by the namespace prefix.
type namespace struct {
	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// QueryCache is a cache-aside store of materialized query results grouped
// in namespaces.
type QueryCache struct {
	service    cache.CacheService
	serializer cache.KeySerializer
	spaces     *xsync.MapOf[string, *namespace]
	logger     *slog.Logger
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(qc *QueryCache) {
		if logger != nil {
			qc.logger = logger
		}
	}
}

// WithKeySerializer replaces the canonical key serializer.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(qc *QueryCache) {
		if s != nil {
			qc.serializer = s
		}
	}
}

// New creates a QueryCache over service.
func New(service cache.CacheService, opts ...Option) *QueryCache {
	qc := &QueryCache{
		service:    service,
		serializer: cache.NewDefaultKeySerializer(),
		spaces:     xsync.NewMapOf[string, *namespace](),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(qc)
	}
	return qc
}

// NamespaceFor derives the conventional namespace of an entity type:
// Menu becomes "menus.cache".
func NamespaceFor[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return inflection.Plural(criteria.ToSnake(t.Name())) + NamespaceSuffix
}

func (qc *QueryCache) space(name string) *namespace {
	ns, _ := qc.spaces.LoadOrCompute(name, func() *namespace {
		return &namespace{}
	})
	return ns
}

// entry is the stored form. Canonical guards against digest collisions.
type entry struct {
	Canonical string `msgpack:"c"`
	Data      []byte `msgpack:"d"`
}

// GetOrCompute returns the materialized result for key, running supplier on
// a miss. The supplier result is fully encoded before it is stored and every
// caller receives its own decoded copy. If ctx is cancelled the caller gets
// ctx.Err() while an in flight computation still completes and is stored.
// Concurrent misses on one key may both run supplier unless the backend
// deduplicates them.
func GetOrCompute[V any](ctx context.Context, qc *QueryCache, key Key, supplier func(context.Context) (V, error)) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	cacheKey, canonical := cache.QueryKey(qc.serializer, key.Namespace, key.Kind, key.Parts...)
	ns := qc.space(key.Namespace)

	var computed atomic.Bool
	fetch := func(fctx context.Context) ([]byte, error) {
		computed.Store(true)
		value, err := supplier(fctx)
		if err != nil {
			return nil, err
		}
		data, err := encode(canonical, value)
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	type outcome struct {
		raw []byte
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		raw, err := cache.GetOrFetch[[]byte](context.WithoutCancel(ctx), qc.service, cacheKey, fetch)
		done <- outcome{raw: raw, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case out = <-done:
	}
	if errors.Is(out.err, cache.ErrInvalidResultType) {
		return zero, fmt.Errorf("%w: %w", ErrMaterialize, out.err)
	}
	if out.err != nil {
		return zero, out.err
	}

	if computed.Load() {
		ns.misses.Add(1)
		qc.logger.Debug("query cache miss", "namespace", key.Namespace, "kind", key.Kind, "key", cacheKey)
	} else {
		ns.hits.Add(1)
		qc.logger.Debug("query cache hit", "namespace", key.Namespace, "kind", key.Kind, "key", cacheKey)
	}

	value, stored, err := decode[V](out.raw)
	if err != nil {
		return zero, err
	}
	if stored != canonical {
		qc.logger.Warn("query cache digest collision, bypassing cache", "namespace", key.Namespace, "key", cacheKey)
		return supplier(ctx)
	}
	return value, nil
}

func encode[V any](canonical string, value V) ([]byte, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %T: %v", ErrMaterialize, value, err)
	}
	raw, err := msgpack.Marshal(entry{Canonical: canonical, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: encode entry: %v", ErrMaterialize, err)
	}
	return raw, nil
}

func decode[V any](raw []byte) (V, string, error) {
	var (
		value V
		e     entry
	)
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return value, "", fmt.Errorf("%w: decode entry: %v", ErrMaterialize, err)
	}
	if err := msgpack.Unmarshal(e.Data, &value); err != nil {
		return value, "", fmt.Errorf("%w: decode %T: %v", ErrMaterialize, value, err)
	}
	return value, e.Canonical, nil
}

// Invalidate drops every entry of the namespace by key prefix, which also
// reaches entries written by other processes sharing the backend. A read
// that started before the triggering write finished may still store a
// stale entry afterwards.
func (qc *QueryCache) Invalidate(ctx context.Context, name string) error {
	qc.space(name).invalidations.Add(1)

	if err := qc.service.DeleteByPrefix(ctx, name+cache.KeySeparator); err != nil {
		qc.logger.Warn("query cache invalidate failed", "namespace", name, "error", err)
		return err
	}
	qc.logger.Debug("query cache invalidated", "namespace", name)
	return nil
}

// Stats returns the counters of a namespace. Entries is the number of live
// entries the backend holds under the namespace prefix, so entries dropped
// by TTL or capacity are not counted.
func (qc *QueryCache) Stats(name string) Stats {
	var st Stats
	if ns, ok := qc.spaces.Load(name); ok {
		st.Hits = ns.hits.Load()
		st.Misses = ns.misses.Load()
		st.Invalidations = ns.invalidations.Load()
	}
	n, err := qc.service.CountByPrefix(context.Background(), name+cache.KeySeparator)
	if err != nil {
		qc.logger.Warn("query cache entry count failed", "namespace", name, "error", err)
	}
	st.Entries = n
	return st
}

// Namespaces lists the namespaces seen so far, sorted.
func (qc *QueryCache) Namespaces() []string {
	var names []string
	qc.spaces.Range(func(k string, _ *namespace) bool {
		names = append(names, k)
		return true
	})
	slices.Sort(names)
	return names
}
