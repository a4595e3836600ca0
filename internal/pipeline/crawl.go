package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
	"github.com/henrybloomingdale/pubcrawl/internal/metrics"
	"github.com/henrybloomingdale/pubcrawl/internal/output"
	"github.com/henrybloomingdale/pubcrawl/internal/render"
)

// CrawlOptions configures the fetch and render stage.
type CrawlOptions struct {
	IDsFile    string
	OutputDir  string
	LinkFilter bool
	// Workers above 1 fetch concurrently; results are still handled in input order.
	Workers     int
	RISFile     string
	MetricsFile string
}

// Crawler runs the fetch and render stage.
type Crawler struct {
	Fetcher *Fetcher
	Logger  *zap.Logger
	Metrics *metrics.Run
}

// NewCrawler creates a Crawler fetching from src.
func NewCrawler(src ArticleSource, log *zap.Logger) *Crawler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{
		Fetcher: NewFetcher(src),
		Logger:  log,
		Metrics: metrics.NewRun(),
	}
}

// fetched is one identifier's outcome tagged with its input position.
type fetched struct {
	index   int
	outcome article.Outcome
	elapsed time.Duration
}

// Run reads the identifier file, fetches and renders every identifier, and
// writes the documents, lists and optional exports under opts.OutputDir.
// Per-identifier failures are recorded and skipped. Unreadable input, an
// unusable output directory, a write error or cancellation abort the run.
func (c *Crawler) Run(ctx context.Context, opts CrawlOptions) (*output.Sets, error) {
	ids, err := ReadIdentifiers(opts.IDsFile)
	if err != nil {
		return nil, err
	}
	dir, err := output.NewDir(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	renderer := render.New(render.Options{LinkFilter: opts.LinkFilter})
	sets := output.NewSets(opts.LinkFilter)

	c.Logger.Info("crawl started",
		zap.Int("ids", len(ids)),
		zap.Int("workers", max(opts.Workers, 1)),
		zap.Bool("link_filter", opts.LinkFilter),
		zap.String("output_dir", dir.Path))

	handle := func(f fetched) error {
		o := f.outcome
		c.Metrics.ObserveFetch(f.elapsed)
		c.Metrics.ObserveOutcome(o)

		if !o.OK() {
			fields := []zap.Field{zap.String("pmid", o.PMID)}
			if o.Failure != nil {
				fields = append(fields, zap.String("kind", string(o.Failure.Kind)), zap.String("error", o.Failure.Reason))
			}
			c.Logger.Warn("identifier failed", fields...)
			sets.Add(o, false)
			return nil
		}

		docs, err := renderer.Render(o.Record)
		if err != nil {
			return err
		}
		if err := dir.WriteDocuments(docs); err != nil {
			return err
		}
		if docs.LinkTagged {
			c.Metrics.ObserveLinkTagged()
		}
		sets.Add(o, docs.LinkTagged)
		c.Logger.Debug("identifier rendered",
			zap.String("pmid", o.PMID),
			zap.Bool("link_tagged", docs.LinkTagged),
			zap.Duration("elapsed", f.elapsed))
		return nil
	}

	if err := c.fetchInOrder(ctx, ids, opts.Workers, handle); err != nil {
		return nil, fmt.Errorf("crawl aborted: %w", err)
	}

	if err := dir.WriteLists(sets); err != nil {
		return nil, err
	}
	if opts.RISFile != "" {
		if err := output.WriteRIS(opts.RISFile, sets.Records); err != nil {
			return nil, err
		}
	}
	if opts.MetricsFile != "" {
		if err := c.Metrics.WriteFile(opts.MetricsFile); err != nil {
			return nil, err
		}
	}

	c.Logger.Info("crawl finished",
		zap.Int("eligible", len(sets.Eligible)),
		zap.Int("failed", len(sets.Failed)),
		zap.Int("link_tagged", len(sets.CodeLinked)))
	return sets, nil
}

func (c *Crawler) fetch(ctx context.Context, index int, id string) fetched {
	start := time.Now()
	o := c.Fetcher.Fetch(ctx, id)
	return fetched{index: index, outcome: o, elapsed: time.Since(start)}
}

// fetchInOrder fetches ids with up to workers goroutines and calls handle
// once per identifier, in input order, from the calling goroutine.
func (c *Crawler) fetchInOrder(ctx context.Context, ids []string, workers int, handle func(fetched) error) error {
	if workers <= 1 {
		for i, id := range ids {
			f := c.fetch(ctx, i, id)
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := handle(f); err != nil {
				return err
			}
		}
		return nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	results := make(chan fetched, workers)

	g.Go(func() error {
		defer close(jobs)
		for i := range ids {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				f := c.fetch(gctx, i, ids[i])
				select {
				case results <- f:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var (
		groupErr error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		groupErr = g.Wait()
		close(results)
	}()

	var handleErr error
	pending := make(map[int]fetched)
	next := 0
	for f := range results {
		if handleErr != nil {
			continue
		}
		pending[f.index] = f
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := parent.Err(); err != nil {
				handleErr = err
			} else {
				handleErr = handle(p)
			}
			if handleErr != nil {
				cancel()
				break
			}
			next++
		}
	}
	wg.Wait()

	if handleErr != nil {
		return handleErr
	}
	if err := parent.Err(); err != nil {
		return err
	}
	return groupErr
}
