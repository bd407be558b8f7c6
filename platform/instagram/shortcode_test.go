package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortcodeFromURL(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		url  string
		code string
		ok   bool
	}{
		{url: "https://www.instagram.com/p/CxKQ9wyh0dN/", code: "CxKQ9wyh0dN", ok: true},
		{url: "https://instagram.com/p/CxKQ9wyh0dN", code: "CxKQ9wyh0dN", ok: true},
		{url: "https://www.instagram.com/reel/C2aB_x-qR5T/?igsh=abc123", code: "C2aB_x-qR5T", ok: true},
		{url: "https://www.instagram.com/tv/B4qxPuqBN1M/", code: "B4qxPuqBN1M", ok: true},
		{url: "https://www.instagram.com/some_user/", ok: false},
		{url: "https://example.com/p/CxKQ9wyh0dN/", ok: false},
		{url: "not a url", ok: false},
	}

	for _, fix := range fixtures {
		code, err := shortcodeFromURL(fix.url)
		if fix.ok {
			assert.NoError(err, fix.url)
			assert.Equal(fix.code, code, fix.url)
		} else {
			assert.Error(err, fix.url)
		}
	}
}

func TestMediaIDCodec(t *testing.T) {
	assert := assert.New(t)

	// hand-checked small values
	id, err := mediaIDFromShortcode("B")
	assert.NoError(err)
	assert.Equal(int64(1), id)

	id, err = mediaIDFromShortcode("BA")
	assert.NoError(err)
	assert.Equal(int64(64), id)

	assert.Equal("BA", shortcodeFromMediaID(64))

	// round trips
	for _, fix := range []int64{1, 63, 64, 4095, 987654321, 3142973850136287469} {
		code := shortcodeFromMediaID(fix)
		back, err := mediaIDFromShortcode(code)
		assert.NoError(err)
		assert.Equal(fix, back, code)
	}

	// codes longer than eleven characters only encode the ID in the head
	long, err := mediaIDFromShortcode("CxKQ9wyh0dNabcdefgh")
	assert.NoError(err)
	short, err := mediaIDFromShortcode("CxKQ9wyh0dN")
	assert.NoError(err)
	assert.Equal(short, long)

	_, err = mediaIDFromShortcode("")
	assert.Error(err)
	_, err = mediaIDFromShortcode("has spaces!")
	assert.Error(err)
}
