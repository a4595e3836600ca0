// Package article defines the per-article record produced by the metadata
// fetch stage and the outcome type the aggregator consumes.
package article

import (
	"net/url"
	"strings"
)

// Record is the bibliographic metadata for one article. Title and Abstract
// hold inline Markdown; every other string is plain text.
type Record struct {
	PMID                   string   `json:"pmid"`
	Title                  string   `json:"title"`
	Authors                []string `json:"authors"`
	Abstract               string   `json:"abstract"`
	Journal                string   `json:"journal"`
	Year                   string   `json:"year,omitempty"`
	Month                  string   `json:"month,omitempty"`
	Volume                 string   `json:"volume,omitempty"`
	Issue                  string   `json:"issue,omitempty"`
	Pages                  string   `json:"pages,omitempty"`
	DOI                    string   `json:"doi,omitempty"`
	PMCID                  string   `json:"pmcid,omitempty"`
	Keywords               []string `json:"keywords,omitempty"`
	Language               string   `json:"language,omitempty"`
	FirstAuthorAffiliation string   `json:"first_author_affiliation,omitempty"`
	LastAuthorAffiliation  string   `json:"last_author_affiliation,omitempty"`
	Links                  []string `json:"links"`
	HasCodeLink            bool     `json:"has_code_link"`
}

// Published returns "Year Month", or whichever half is present.
func (r *Record) Published() string {
	return strings.TrimSpace(r.Year + " " + r.Month)
}

// DOIURL returns the resolver link for a DOI.
func DOIURL(doi string) string {
	return "https://doi.org/" + doi
}

// PMCURL returns the PubMed Central landing page for a PMCID.
func PMCURL(pmcid string) string {
	return "https://pmc.ncbi.nlm.nih.gov/articles/" + pmcid + "/"
}

// PubMedURL returns the PubMed page for a PMID.
func PubMedURL(pmid string) string {
	return "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
}

// CodeHosts lists the domains treated as code repositories. Subdomains match.
var CodeHosts = []string{
	"github.com",
	"github.io",
	"gitlab.com",
	"bitbucket.org",
	"sourceforge.net",
	"codeberg.org",
	"gitee.com",
}

// IsCodeLink reports whether raw points at a code-hosting domain.
func IsCodeLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range CodeHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// AnyCodeLink reports whether any of links points at a code host.
func AnyCodeLink(links []string) bool {
	for _, l := range links {
		if IsCodeLink(l) {
			return true
		}
	}
	return false
}

// SetLinks stores links as an ordered set and refreshes HasCodeLink.
func (r *Record) SetLinks(links ...string) {
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	r.Links = out
	r.HasCodeLink = AnyCodeLink(out)
}
