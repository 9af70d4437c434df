package core

import (
	"regexp"
	"strings"
)

// mailPattern matches local-part@domain.tld shaped substrings. Markup often
// embeds asset names that look like addresses (image@2x.png), filtered by
// suffix below.
var mailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.[\w.-]+`)

// ExtractMails extracts the deduplicated mail addresses found in page
// markup, in first-match order. Image-asset false positives are dropped.
// Empty input yields no addresses, never an error.
func ExtractMails(html string) []string {
	if html == "" {
		return nil
	}

	var mails []string
	seen := make(map[string]struct{})
	for _, mail := range mailPattern.FindAllString(html, -1) {
		if _, dup := seen[mail]; dup {
			continue
		}
		seen[mail] = struct{}{}
		if strings.HasSuffix(mail, ".png") || strings.HasSuffix(mail, ".jpg") {
			continue
		}
		mails = append(mails, mail)
	}
	return mails
}

// FilterMailsByDomain keeps only the addresses belonging to the given site
// domain.
func FilterMailsByDomain(domain string, mails []string) []string {
	var domainMails []string
	for _, mail := range mails {
		if strings.HasSuffix(mail, domain) {
			domainMails = append(domainMails, mail)
		}
	}
	return domainMails
}

// MailReport aggregates the addresses harvested from one site.
type MailReport struct {
	Site  string
	Mails []string
}

// Count returns the number of harvested addresses.
func (m MailReport) Count() int {
	return len(m.Mails)
}

// CollectSiteMails extracts and deduplicates addresses across every
// successfully downloaded page of a site.
func CollectSiteMails(site Site) MailReport {
	var mails []string
	seen := make(map[string]struct{})
	for _, page := range site.Pages {
		if !page.Succeeded {
			continue
		}
		for _, mail := range ExtractMails(page.HTML) {
			if _, dup := seen[mail]; dup {
				continue
			}
			seen[mail] = struct{}{}
			mails = append(mails, mail)
		}
	}
	return MailReport{Site: site.OriginURL, Mails: mails}
}
