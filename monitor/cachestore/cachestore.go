// Package cachestore caches short-lived JSON blobs for the monitoring engine,
// mainly commenter profile snapshots, so one noisy thread does not trigger a
// platform profile fetch per comment. Entries carry a fixed TTL and can be
// purged early.
package cachestore

import (
	"context"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
