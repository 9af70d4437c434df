package core

import (
	"github.com/rafabd1/Tendril/internal/utils"
)

// candidatePagePatterns is the fixed, ordered set of paths businesses
// commonly publish their contact details under.
var candidatePagePatterns = []string{
	"contact",
	"contact-us",
	"contactus",
	"contact.html",
	"contact.php",
	"about",
	"aboutus",
	"about-us",
	"about.html",
	"about.php",
	"support",
}

// CandidatePages generates the probe URLs for a site origin, one per
// pattern, joined with exactly one slash. Deterministic, no I/O.
func CandidatePages(origin string) []string {
	pages := make([]string, 0, len(candidatePagePatterns))
	for _, pattern := range candidatePagePatterns {
		pages = append(pages, utils.JoinURLPath(origin, pattern))
	}
	return pages
}
