// Package setstore holds the static membership lists the monitoring engine
// consults while scanning: trusted accounts that are never scored (the
// operator's own account, partners), and known promo/spam domains. Sets are
// populated at startup, from config or a JSON file, and are read-only while
// scan workers run.
package setstore

import (
	"context"
	"io"
	"os"

	"github.com/goccy/go-json"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
}

type MemSetStore struct {
	Sets map[string]map[string]bool
}

var _ SetStore = (*MemSetStore)(nil)

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		Sets: make(map[string]map[string]bool),
	}
}

// InSet reports membership; an unknown set name is simply empty, not an
// error.
func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	set, ok := s.Sets[name]
	if !ok {
		return false, nil
	}
	_, ok = set[val]
	return ok, nil
}

// Add inserts values into a named set. Setup-time only: not safe to call
// concurrently with InSet.
func (s *MemSetStore) Add(name string, vals ...string) {
	set, ok := s.Sets[name]
	if !ok {
		set = make(map[string]bool, len(vals))
		s.Sets[name] = set
	}
	for _, val := range vals {
		set[val] = true
	}
}

// LoadFromFileJSON merges a {"set-name": ["value", ...]} file into the store.
// Setup-time only.
func (s *MemSetStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err != nil {
		return err
	}

	for name, l := range lists {
		s.Add(name, l...)
	}
	return nil
}
