package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMails(t *testing.T) {
	html := `<html><body>
		<p>Reach us at <a href="mailto:foo@bar.com">foo@bar.com</a></p>
		<p>Billing: baz@qux.co.uk</p>
		<img src="hero@2x.png"> <img src="banner@large.jpg">
		<footer>foo@bar.com</footer>
	</body></html>`

	assert.Equal(t, []string{"foo@bar.com", "baz@qux.co.uk"}, ExtractMails(html))
}

func TestExtractMailsDropsImageAssets(t *testing.T) {
	assert.Nil(t, ExtractMails(`<img srcset="logo@2x.png 2x, logo@3x.jpg 3x">`))
}

func TestExtractMailsEmptyInput(t *testing.T) {
	assert.Nil(t, ExtractMails(""))
	assert.Nil(t, ExtractMails("<html><body>no addresses here</body></html>"))
}

func TestExtractMailsKeepsFirstSeenOrder(t *testing.T) {
	html := "second@example.com first@example.org second@example.com third@example.net"

	assert.Equal(t, []string{"second@example.com", "first@example.org", "third@example.net"}, ExtractMails(html))
}

func TestFilterMailsByDomain(t *testing.T) {
	mails := []string{
		"sales@acme.com",
		"info@gmail.com",
		"support@shop.acme.com",
		"owner@acme.org",
	}

	assert.Equal(t, []string{"sales@acme.com", "support@shop.acme.com"}, FilterMailsByDomain("acme.com", mails))
	assert.Nil(t, FilterMailsByDomain("nowhere.test", mails))
}

func TestCollectSiteMails(t *testing.T) {
	site := Site{
		OriginURL: "https://acme.example.com/",
		Pages: []PageFetch{
			{URL: "https://acme.example.com/contact", HTML: "sales@acme.com owner@acme.com", Succeeded: true},
			{URL: "https://acme.example.com/about", HTML: "press@acme.com sales@acme.com", Succeeded: true},
			{URL: "https://acme.example.com/support", HTML: "hidden@acme.com", Succeeded: false},
		},
	}

	collected := CollectSiteMails(site)

	assert.Equal(t, "https://acme.example.com/", collected.Site)
	assert.Equal(t, []string{"sales@acme.com", "owner@acme.com", "press@acme.com"}, collected.Mails)
	assert.Equal(t, 3, collected.Count())
}

func TestCollectSiteMailsNoPages(t *testing.T) {
	collected := CollectSiteMails(Site{OriginURL: "https://empty.example.com/"})

	assert.Equal(t, "https://empty.example.com/", collected.Site)
	assert.Empty(t, collected.Mails)
	assert.Zero(t, collected.Count())
}
