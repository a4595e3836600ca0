package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/henrybloomingdale/pubcrawl/internal/eutils"
	"github.com/henrybloomingdale/pubcrawl/internal/output"
)

// SearchLimit is the ESearch retmax per keyword, the most PubMed returns in
// one page.
const SearchLimit = 10000

// Searcher runs one ESearch query. *eutils.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts *eutils.SearchOptions) (*eutils.SearchResult, error)
}

// SearchRequest describes a search stage run.
type SearchRequest struct {
	Keywords []string
	MinDate  string
	MaxDate  string
}

// SearchReport is the result of a search stage run.
type SearchReport struct {
	Hits  []output.KeywordHits
	Total int
	// IDs holds every identifier found, first-seen order, without duplicates.
	IDs []string
}

// CollectIDs searches each keyword in turn. A failing keyword is logged and
// contributes nothing; the remaining keywords still run. Only cancellation
// of ctx aborts the stage.
func CollectIDs(ctx context.Context, s Searcher, req SearchRequest, log *zap.Logger) (*SearchReport, error) {
	if log == nil {
		log = zap.NewNop()
	}

	report := &SearchReport{IDs: []string{}}
	seen := make(map[string]bool)
	opts := &eutils.SearchOptions{
		Limit:   SearchLimit,
		MinDate: req.MinDate,
		MaxDate: req.MaxDate,
	}

	for _, kw := range req.Keywords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := s.Search(ctx, kw, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("keyword search failed", zap.String("keyword", kw), zap.Error(err))
			report.Hits = append(report.Hits, output.KeywordHits{Keyword: kw, Err: err})
			continue
		}

		log.Info("keyword searched",
			zap.String("keyword", kw),
			zap.String("query", res.QueryTranslation),
			zap.Int("ids", len(res.IDs)),
			zap.Int("count", res.Count))
		if res.Count > len(res.IDs) {
			log.Warn("keyword matched more articles than one search returns",
				zap.String("keyword", kw),
				zap.Int("count", res.Count),
				zap.Int("returned", len(res.IDs)))
		}

		report.Hits = append(report.Hits, output.KeywordHits{Keyword: kw, IDs: len(res.IDs)})
		report.Total += len(res.IDs)
		for _, id := range res.IDs {
			if !seen[id] {
				seen[id] = true
				report.IDs = append(report.IDs, id)
			}
		}
	}

	log.Info("search finished",
		zap.Int("total", report.Total),
		zap.Int("unique", len(report.IDs)))
	return report, nil
}
