package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
	"github.com/henrybloomingdale/pubcrawl/internal/eutils"
)

// ArticleSource looks up one PubMed article. *eutils.Client satisfies it.
type ArticleSource interface {
	FetchArticle(ctx context.Context, pmid string) (*eutils.Article, error)
}

// Fetcher turns identifiers into outcomes. It never retries: each identifier
// gets at most one lookup and every error becomes a Failure.
type Fetcher struct {
	src ArticleSource
}

// NewFetcher creates a Fetcher backed by src.
func NewFetcher(src ArticleSource) *Fetcher {
	return &Fetcher{src: src}
}

// Fetch resolves one identifier.
func (f *Fetcher) Fetch(ctx context.Context, id string) article.Outcome {
	pmid := strings.TrimSpace(id)
	if !eutils.ValidPMID(pmid) {
		return article.Failed(pmid, article.FailureInvalid, "not a PubMed identifier")
	}

	a, err := f.src.FetchArticle(ctx, pmid)
	if err != nil {
		return article.Failed(pmid, classify(err), err.Error())
	}
	if a == nil {
		return article.Failed(pmid, article.FailureLookup, "no article returned")
	}

	rec := NewRecord(pmid, a)
	if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.Abstract) == "" {
		return article.Failed(pmid, article.FailureEmpty, "record has neither title nor abstract")
	}
	return article.Succeeded(rec)
}

func classify(err error) article.FailureKind {
	switch {
	case errors.Is(err, eutils.ErrInvalidPMID):
		return article.FailureInvalid
	case errors.Is(err, eutils.ErrMalformed):
		return article.FailureParse
	default:
		return article.FailureLookup
	}
}

// NewRecord converts a fetched article into the record the renderer and
// writers consume.
func NewRecord(pmid string, a *eutils.Article) *article.Record {
	rec := &article.Record{
		PMID:     pmid,
		Title:    a.Title,
		Authors:  []string{},
		Abstract: a.Abstract,
		Journal:  a.Journal,
		Year:     a.Year,
		Month:    a.Month,
		Volume:   a.Volume,
		Issue:    a.Issue,
		Pages:    a.Pages,
		DOI:      a.DOI,
		PMCID:    a.PMCID,
		Keywords: a.Keywords,
		Language: a.Language,
	}
	if rec.Journal == "" {
		rec.Journal = a.JournalAbbrev
	}

	for _, au := range a.Authors {
		if name := strings.TrimSpace(au.FullName()); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	if n := len(a.Authors); n > 0 {
		rec.FirstAuthorAffiliation = a.Authors[0].Affiliation
		rec.LastAuthorAffiliation = a.Authors[n-1].Affiliation
	}

	var links []string
	if a.DOI != "" {
		links = append(links, article.DOIURL(a.DOI))
	}
	if a.PMCID != "" {
		links = append(links, article.PMCURL(a.PMCID))
	}
	links = append(links, a.MentionedURLs...)
	rec.SetLinks(links...)

	return rec
}
