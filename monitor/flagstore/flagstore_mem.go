package flagstore

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemFlagStore keeps flags in process memory, safe for concurrent scan
// workers. Flags are lost on restart; deployments that care use the redis
// store.
type MemFlagStore struct {
	data *xsync.MapOf[string, []string]
}

var _ FlagStore = (*MemFlagStore)(nil)

func NewMemFlagStore() *MemFlagStore {
	return &MemFlagStore{
		data: xsync.NewMapOf[string, []string](),
	}
}

func (s *MemFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	v, ok := s.data.Load(key)
	if !ok {
		return []string{}, nil
	}
	return v, nil
}

func (s *MemFlagStore) Add(ctx context.Context, key string, flags []string) error {
	s.data.Compute(key, func(old []string, _ bool) ([]string, bool) {
		merged := make([]string, 0, len(old)+len(flags))
		merged = append(merged, old...)
		merged = append(merged, flags...)
		return dedupeStrings(merged), false
	})
	return nil
}

// Remove is a no-op for flags the account never had.
func (s *MemFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(flags))
	for _, f := range flags {
		drop[f] = true
	}
	s.data.Compute(key, func(old []string, _ bool) ([]string, bool) {
		out := make([]string, 0, len(old))
		for _, f := range old {
			if !drop[f] {
				out = append(out, f)
			}
		}
		return out, false
	})
	return nil
}
