package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatePagesCoversKnownPatterns(t *testing.T) {
	pages := CandidatePages("https://example.com")

	expected := []string{
		"https://example.com/contact",
		"https://example.com/contact-us",
		"https://example.com/contactus",
		"https://example.com/contact.html",
		"https://example.com/contact.php",
		"https://example.com/about",
		"https://example.com/aboutus",
		"https://example.com/about-us",
		"https://example.com/about.html",
		"https://example.com/about.php",
		"https://example.com/support",
	}
	assert.Equal(t, expected, pages)
}

func TestCandidatePagesTrailingSlashOrigin(t *testing.T) {
	pages := CandidatePages("https://example.com/")

	require.NotEmpty(t, pages)
	for _, page := range pages {
		assert.False(t, strings.Contains(page, "com//"), "double slash in %q", page)
	}
	assert.Equal(t, "https://example.com/contact", pages[0])
}

func TestCandidatePagesAreDeterministic(t *testing.T) {
	first := CandidatePages("http://shop.example.org")
	second := CandidatePages("http://shop.example.org")

	assert.Equal(t, first, second)
}
