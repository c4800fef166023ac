// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository wraps a go-repository-bun Repository[T]. Reads are
// served from a query cache namespace owned by T ("menus.cache" for Menu);
// writes go straight to the base repository and, once they succeed, drop
// the whole namespace.
//
//	qc := querycache.New(cacheService)
//	cached := repositorycache.New[*Menu](base, qc,
//		repositorycache.WithSearch(search.NewService[*Menu](entity, exec, qc)))
//
//	page, err := cached.Search(ctx, map[string]any{"name": "系统"}, criteria.PageOf(0, 10))
//	_, err = cached.Update(ctx, menu) // invalidates menus.cache after the update
//
// # Cached vs Pass-through Operations
//
// Cached: Get, GetByID, GetByIdentifier, List, Count and Search.
//
// Pass-through: every write (Create, Update, Upsert, Delete and variants),
// every *Tx method and Raw queries. A failed write leaves the cache alone.
//
// # Invalidation
//
// Invalidation is coarse: all search, count and read entries of the
// namespace go at once. Writes that also affect another namespace can list
// it on the context:
//
//	ctx = repositorycache.WithInvalidations(ctx, "menu_views.cache")
//
// A read that started before a write completed can still store its result
// after the invalidation ran. There is no read-your-writes guarantee across
// concurrent requests.
//
// # Criteria
//
// SelectCriteria functions are opaque, so Get, GetByID, GetByIdentifier,
// List and Count only cache calls made without criteria and pass filtered
// calls to the base repository. For cached filtered reads build a
// criteria.Criteria from predicates and call GetWhere, ListWhere or
// CountWhere; equal predicates share one entry:
//
//	preds := synth.Predicates(map[string]any{"tenantCode": "0"}, "")
//	menus, total, err := cached.ListWhere(ctx, criteria.CriteriaOf(preds...))
package repositorycache
