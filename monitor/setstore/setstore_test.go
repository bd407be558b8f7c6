package setstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSetStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ss := NewMemSetStore()

	ok, err := ss.InSet(ctx, "trusted-accounts", "ourbrand")
	assert.NoError(err)
	assert.False(ok)

	ss.Add("trusted-accounts", "ourbrand", "partner_account")
	ss.Add("trusted-accounts", "ourbrand")

	ok, err = ss.InSet(ctx, "trusted-accounts", "ourbrand")
	assert.NoError(err)
	assert.True(ok)
	ok, err = ss.InSet(ctx, "trusted-accounts", "stranger")
	assert.NoError(err)
	assert.False(ok)

	// unknown set behaves as empty
	ok, err = ss.InSet(ctx, "no-such-set", "anything")
	assert.NoError(err)
	assert.False(ok)
}

func TestMemSetStoreLoadFromFileJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "sets.json")
	blob := `{
		"trusted-accounts": ["ourbrand", "partner_account"],
		"promo-domains": ["spam.example", "deals.example"]
	}`
	require.NoError(t, os.WriteFile(p, []byte(blob), 0644))

	ss := NewMemSetStore()
	ss.Add("promo-domains", "scam.example")
	require.NoError(t, ss.LoadFromFileJSON(p))

	for _, fix := range []struct {
		set string
		val string
	}{
		{set: "trusted-accounts", val: "ourbrand"},
		{set: "trusted-accounts", val: "partner_account"},
		{set: "promo-domains", val: "spam.example"},
		{set: "promo-domains", val: "scam.example"},
	} {
		ok, err := ss.InSet(ctx, fix.set, fix.val)
		assert.NoError(err)
		assert.True(ok, "%s/%s", fix.set, fix.val)
	}

	assert.Error(ss.LoadFromFileJSON(filepath.Join(t.TempDir(), "missing.json")))
}
