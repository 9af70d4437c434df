package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToOrigin(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain url", "https://example.com/some/page?x=1", "https://example.com/"},
		{"no trailing slash", "https://example.com", "https://example.com/"},
		{"uppercase host and scheme", "HTTPS://Example.COM/About", "https://example.com/"},
		{"relative wrapper", "/url?q=https://shop.example.org/about", "https://shop.example.org/"},
		{"absolute wrapper", "https://www.google.com/url?q=http://biz.example.net/contact&sa=U", "http://biz.example.net/"},
		{"port kept", "https://example.com:8443/page", "https://example.com:8443/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeToOrigin(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.False(t, strings.Contains(got, "?"))
		})
	}
}

func TestNormalizeToOriginMalformed(t *testing.T) {
	for _, in := range []string{"example.com/about", "/relative/only", "", "/url?q=still-no-scheme"} {
		_, err := NormalizeToOrigin(in)
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, ErrMalformedURL)
	}
}

func TestJoinURLPath(t *testing.T) {
	assert.Equal(t, "https://a.com/contact", JoinURLPath("https://a.com/", "contact"))
	assert.Equal(t, "https://a.com/contact", JoinURLPath("https://a.com", "contact"))
	assert.Equal(t, "https://a.com/contact", JoinURLPath("https://a.com/", "/contact"))
	assert.Equal(t, "https://a.com/contact", JoinURLPath("https://a.com", "/contact"))
	assert.Equal(t, "https://a.com", JoinURLPath("https://a.com", ""))
	assert.Equal(t, "https://a.com/", JoinURLPath("https://a.com/", ""))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://example.com/search"))
	assert.True(t, IsValidURL("http://localhost:8080"))
	assert.False(t, IsValidURL("not a url"))
	assert.False(t, IsValidURL("/path/only"))
	assert.False(t, IsValidURL(""))
}
