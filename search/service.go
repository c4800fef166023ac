package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/goliatone/go-criteria-cache/querycache"
	"github.com/goliatone/go-criteria-cache/store"
)

// Page is one page of rows plus the total matching the same filters.
type Page[T any] struct {
	Rows  []T   `json:"rows"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// Service answers search requests for one entity type.
type Service[T any] struct {
	entity    *criteria.Entity
	exec      store.Executor
	cache     *querycache.QueryCache
	synth     *criteria.Synthesizer
	namespace string
	caseFold  bool
	logger    *slog.Logger
}

type options struct {
	synth     *criteria.Synthesizer
	namespace string
	caseFold  bool
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*options)

// WithSynthesizer replaces the default synthesizer.
func WithSynthesizer(s *criteria.Synthesizer) Option {
	return func(o *options) { o.synth = s }
}

// WithNamespace overrides the cache namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithCaseFold renders LIKE filters case-insensitively.
func WithCaseFold(on bool) Option {
	return func(o *options) { o.caseFold = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewService builds a search service. qc may be nil to disable caching.
func NewService[T any](entity *criteria.Entity, exec store.Executor, qc *querycache.QueryCache, opts ...Option) *Service[T] {
	o := options{namespace: querycache.NamespaceFor[T]()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.synth == nil {
		o.synth = criteria.NewSynthesizer(nil, nil)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Service[T]{
		entity:    entity,
		exec:      exec,
		cache:     qc,
		synth:     o.synth,
		namespace: o.namespace,
		caseFold:  o.caseFold,
		logger:    o.logger,
	}
}

// Namespace returns the cache namespace of the service.
func (s *Service[T]) Namespace() string {
	return s.namespace
}

// Query renders request and page into SQL without executing it.
func (s *Service[T]) Query(request any, page criteria.Pageable, skip ...string) (criteria.Query, error) {
	if err := page.Validate(); err != nil {
		return criteria.Query{}, err
	}
	for _, o := range page.Sort {
		if !s.entity.HasColumn(criteria.ToSnake(o.Property)) {
			return criteria.Query{}, fmt.Errorf("%w: sort %q on %s", criteria.ErrUnknownProperty, o.Property, s.entity.Table)
		}
	}

	preds := s.synth.Predicates(request, "", skip...)
	for _, p := range preds {
		if !s.entity.HasColumn(p.Source) {
			return criteria.Query{}, fmt.Errorf("%w: filter %q on %s", criteria.ErrUnknownProperty, p.Param, s.entity.Table)
		}
	}

	return s.entity.Fragment().
		Where(preds...).
		Pageable(page).
		CaseFold(s.caseFold).
		Build()
}

// Search returns the page of rows matching request and the total count.
// Both are served from the query cache when present.
func (s *Service[T]) Search(ctx context.Context, request any, page criteria.Pageable, skip ...string) (Page[T], error) {
	q, err := s.Query(request, page, skip...)
	if err != nil {
		return Page[T]{}, err
	}

	rows, err := s.rows(ctx, q, page)
	if err != nil {
		return Page[T]{}, err
	}
	total, err := s.total(ctx, q)
	if err != nil {
		return Page[T]{}, err
	}

	return Page[T]{Rows: rows, Total: total, Page: page.Page, Size: page.Size}, nil
}

// Count returns the number of rows matching request.
func (s *Service[T]) Count(ctx context.Context, request any, skip ...string) (int64, error) {
	q, err := s.Query(request, criteria.Unpaged(), skip...)
	if err != nil {
		return 0, err
	}
	return s.total(ctx, q)
}

// Invalidate drops every cached result of the service. Call it after a
// successful write.
func (s *Service[T]) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, s.namespace)
}

func (s *Service[T]) rows(ctx context.Context, q criteria.Query, page criteria.Pageable) ([]T, error) {
	fetch := func(ctx context.Context) ([]T, error) {
		return store.Select[T](ctx, s.exec, q.SQL(), q.Params())
	}
	if s.cache == nil {
		return fetch(ctx)
	}
	return querycache.GetOrCompute(ctx, s.cache, querycache.SearchKey(s.namespace, q, page), fetch)
}

func (s *Service[T]) total(ctx context.Context, q criteria.Query) (int64, error) {
	fetch := func(ctx context.Context) (int64, error) {
		return s.exec.ExecuteScalar(ctx, q.CountSQL(), q.Params())
	}
	if s.cache == nil {
		return fetch(ctx)
	}
	return querycache.GetOrCompute(ctx, s.cache, querycache.CountKey(s.namespace, q), fetch)
}
