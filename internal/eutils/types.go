// Package eutils provides a client for the PubMed side of NCBI E-utilities.
package eutils

import "errors"

var (
	// ErrInvalidPMID is returned before any request when an identifier is not a PMID.
	ErrInvalidPMID = errors.New("invalid PMID")
	// ErrNotFound is returned when PubMed has no article for a PMID.
	ErrNotFound = errors.New("article not found")
	// ErrMalformed is returned when a response cannot be decoded.
	ErrMalformed = errors.New("malformed response")
)

// SearchResult represents the result of an ESearch query.
type SearchResult struct {
	Count            int      `json:"count"`
	IDs              []string `json:"ids"`
	QueryTranslation string   `json:"query_translation"`
}

// SearchOptions configures a search query.
type SearchOptions struct {
	Limit   int    `json:"limit,omitempty"`
	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date,omitempty"`
}

// Article represents a PubMed article with parsed fields.
// Title and abstract text carry inline markup converted to Markdown.
type Article struct {
	PMID          string   `json:"pmid"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Authors       []Author `json:"authors"`
	Journal       string   `json:"journal"`
	JournalAbbrev string   `json:"journal_abbrev"`
	Volume        string   `json:"volume,omitempty"`
	Issue         string   `json:"issue,omitempty"`
	Pages         string   `json:"pages,omitempty"`
	Year          string   `json:"year"`
	Month         string   `json:"month,omitempty"`
	DOI           string   `json:"doi,omitempty"`
	PMCID         string   `json:"pmcid,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	MentionedURLs []string `json:"mentioned_urls,omitempty"`
	Language      string   `json:"language"`
}

// Author represents an article author.
type Author struct {
	LastName       string `json:"last_name"`
	ForeName       string `json:"fore_name"`
	Initials       string `json:"initials"`
	CollectiveName string `json:"collective_name,omitempty"`
	Affiliation    string `json:"affiliation,omitempty"`
}

// FullName returns "ForeName LastName", or CollectiveName if present.
func (a Author) FullName() string {
	if a.CollectiveName != "" {
		return a.CollectiveName
	}
	if a.ForeName == "" {
		return a.LastName
	}
	return a.ForeName + " " + a.LastName
}
