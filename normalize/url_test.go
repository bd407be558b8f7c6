package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextURLs(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		s   string
		out []string
	}{
		{
			s:   "no links here",
			out: nil,
		},
		{
			s:   "amazing deal at https://spam.example/offer?id=1 go now",
			out: []string{"https://spam.example/offer?id=1"},
		},
		{
			s:   "http://a.example and https://b.example/x",
			out: []string{"http://a.example", "https://b.example/x"},
		},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, ExtractTextURLs(fix.s))
	}
}

func TestLossyURL(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		raw string
		out string
	}{
		{
			raw: "HTTPS://WWW.Example.COM/shop/",
			out: "https://example.com/shop",
		},
		{
			raw: "https://example.com/p?utm_source=ig&utm_campaign=x&id=5",
			out: "https://example.com/p?id=5",
		},
		{
			raw: "https://example.com/page#section",
			out: "https://example.com/page",
		},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, LossyURL(fix.raw))
	}
}

func TestURLHost(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("spam.example", URLHost("https://www.spam.example/offer"))
	assert.Equal("spam.example", URLHost("https://spam.example:8080/x"))
	assert.Equal("", URLHost("not a url"))
}
