// Package flagstore tracks durable per-account flags set by the monitoring
// engine: fired indicator keys, repeat-text offenders, promo-domain linkers.
// Flags are plain strings attached to a username; unlike counters they never
// expire on their own.
package flagstore

import (
	"context"
	"sort"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}

func dedupeStrings(in []string) []string {
	m := make(map[string]bool, len(in))
	for _, s := range in {
		m[s] = true
	}
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
