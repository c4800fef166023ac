// Package querycache keeps materialized query results keyed by the rendered
// SQL, its parameters and the page.
//
// Entries are grouped in namespaces, conventionally "<entities>.cache".
// A write path performs its write and then calls Invalidate on the owning
// namespace, which drops every search and count entry for it.
//
//	rows, err := querycache.GetOrCompute(ctx, qc, querycache.SearchKey(ns, q, page),
//		func(ctx context.Context) ([]Menu, error) {
//			return store.Select[Menu](ctx, exec, q.SQL(), q.Params())
//		})
package querycache
