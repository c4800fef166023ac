package repositorycache

import (
	"context"
	"slices"
)

type invalidationsContextKey struct{}

// WithInvalidations attaches extra namespaces that a write performed with
// ctx must also invalidate, for example the namespace of a joined view.
func WithInvalidations(ctx context.Context, namespaces ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(namespaces) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(invalidationsFromContext(ctx), namespaces...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, invalidationsContextKey{}, combined)
}

func invalidationsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if ns, ok := ctx.Value(invalidationsContextKey{}).([]string); ok {
		return slices.Clone(ns)
	}
	return nil
}

func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
