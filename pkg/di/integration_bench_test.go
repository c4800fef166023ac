package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-criteria-cache/cache"
	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/goliatone/go-criteria-cache/querycache"
	"github.com/goliatone/go-criteria-cache/repositorycache"
)

func TestConcurrentSearch(t *testing.T) {
	container := newSQLiteContainer(t)
	svc, err := NewSearchService[Menu](container)
	if err != nil {
		t.Fatalf("NewSearchService failed: %v", err)
	}

	const workers = 16
	ctx := context.Background()
	page := criteria.PageOf(0, 10, criteria.Asc("sort"))

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, want := menuRequest{Name: "系统"}, int64(3)
			if i%2 == 1 {
				req, want = menuRequest{TenantCode: "1"}, 1
			}
			res, err := svc.Search(ctx, req, page)
			if err != nil {
				errs <- err
				return
			}
			if res.Total != want || len(res.Rows) != int(want) {
				errs <- fmt.Errorf("worker %d: got %d rows, total %d, want %d", i, len(res.Rows), res.Total, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	stats := container.QueryCache().Stats(svc.Namespace())
	if stats.Hits+stats.Misses != 2*workers {
		t.Errorf("Expected %d lookups, got %+v", 2*workers, stats)
	}
	if stats.Entries != 4 {
		t.Errorf("Expected two pages and two counts cached, got %d", stats.Entries)
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("Failed to create DI container: %v", err)
	}
	repo := NewCachedRepository(container, newMenuStore())
	ctx := context.Background()

	const writers, readers, perWorker = 4, 8, 10

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := repo.Create(ctx, Menu{ID: fmt.Sprintf("w%d-%d", w, i)}); err != nil {
					t.Errorf("Create failed: %v", err)
				}
			}
		}(w)
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, _, err := repo.List(ctx); err != nil {
					t.Errorf("List failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	// every write has returned, so no stale listing may survive
	_, total, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != writers*perWorker {
		t.Errorf("Expected %d menus after the writes, got %d", writers*perWorker, total)
	}
	if got := container.QueryCache().Stats(repo.Namespace()).Invalidations; got != writers*perWorker {
		t.Errorf("Expected one invalidation per write, got %d", got)
	}
}

// BenchmarkQueryKey measures key derivation for a rendered search.
func BenchmarkQueryKey(b *testing.B) {
	serializer := cache.NewDefaultKeySerializer()
	sql := "SELECT * FROM se_menus WHERE tenant_code LIKE :tenantCode AND name LIKE :name ORDER BY sort ASC LIMIT 10 OFFSET 0"

	cases := []struct {
		name   string
		params map[string]any
	}{
		{"no_params", nil},
		{"two_params", map[string]any{"tenantCode": "0%", "name": "系统%"}},
		{"in_list", map[string]any{"ids": []int{1, 2, 3, 4, 5, 6, 7, 8}, "name": "a%"}},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = cache.QueryKey(serializer, "se_menus.cache", cache.KindSearch, sql, tc.params)
			}
		})
	}
}

// BenchmarkQueryCacheHit measures a warm GetOrCompute round trip through the
// memory backend including entry decoding.
func BenchmarkQueryCacheHit(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}
	qc := container.QueryCache()
	ctx := context.Background()

	rows := make([]Menu, 10)
	for i := range rows {
		rows[i] = Menu{ID: fmt.Sprintf("m%d", i), Name: fmt.Sprintf("菜单 %d", i), Sort: i}
	}
	key := querycache.Key{Namespace: "se_menus.cache", Kind: cache.KindSearch, Parts: []any{"SELECT * FROM se_menus", map[string]any{"name": "菜单%"}}}
	supplier := func(context.Context) ([]Menu, error) { return rows, nil }

	if _, err := querycache.GetOrCompute(ctx, qc, key, supplier); err != nil {
		b.Fatalf("warm up failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = querycache.GetOrCompute(ctx, qc, key, supplier)
	}
}

// BenchmarkSearch compares a warm search with one whose namespace is
// invalidated before every call.
func BenchmarkSearch(b *testing.B) {
	container := newSQLiteContainer(b)
	svc, err := NewSearchService[Menu](container)
	if err != nil {
		b.Fatalf("NewSearchService failed: %v", err)
	}
	ctx := context.Background()
	req := menuRequest{TenantCode: "0", Name: "系统"}
	page := criteria.PageOf(0, 10, criteria.Asc("sort"))

	b.Run("warm", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := svc.Search(ctx, req, page); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("invalidated", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := svc.Invalidate(ctx); err != nil {
				b.Fatal(err)
			}
			if _, err := svc.Search(ctx, req, page); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkConcurrentRepositoryReads measures cached GetByID under parallel
// load.
func BenchmarkConcurrentRepositoryReads(b *testing.B) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		b.Fatalf("Failed to create DI container: %v", err)
	}
	seed := make([]Menu, 64)
	for i := range seed {
		seed[i] = Menu{ID: fmt.Sprintf("m%d", i), Name: fmt.Sprintf("菜单 %d", i)}
	}
	repo := NewCachedRepository(container, newMenuStore(seed...), repositorycache.WithNamespace[Menu]("bench_menus.cache"))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = repo.GetByID(ctx, seed[i%len(seed)].ID)
			i++
		}
	})
}
