package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/henrybloomingdale/pubcrawl/internal/eutils"
)

// fakeSource serves articles from memory and records every lookup.
type fakeSource struct {
	mu       sync.Mutex
	articles map[string]*eutils.Article
	errs     map[string]error
	delays   map[string]time.Duration
	calls    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		articles: map[string]*eutils.Article{},
		errs:     map[string]error{},
		delays:   map[string]time.Duration{},
	}
}

func (s *fakeSource) FetchArticle(ctx context.Context, pmid string) (*eutils.Article, error) {
	s.mu.Lock()
	s.calls = append(s.calls, pmid)
	delay := s.delays[pmid]
	a, err := s.articles[pmid], s.errs[pmid]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: PMID %s", eutils.ErrNotFound, pmid)
	}
	cp := *a
	return &cp, nil
}

func (s *fakeSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func plainArticle(pmid string) *eutils.Article {
	return &eutils.Article{
		PMID:     pmid,
		Title:    "Article " + pmid,
		Abstract: "Abstract of " + pmid + ".",
		Authors:  []eutils.Author{{ForeName: "Ada", LastName: "Lovelace", Affiliation: "Analytical Engines Ltd"}},
		Journal:  "Journal of Tests",
		Year:     "2024",
		DOI:      "10.1000/" + pmid,
	}
}

func codeArticle(pmid string) *eutils.Article {
	a := plainArticle(pmid)
	a.Abstract = "Code is at https://github.com/example/tool" + pmid + "."
	a.MentionedURLs = []string{"https://github.com/example/tool" + pmid}
	return a
}

func writeIDs(t *testing.T, ids ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.txt")
	var body string
	for _, id := range ids {
		body += id + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// snapshot returns name -> content for every file under dir.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Name()] = readString(t, filepath.Join(dir, e.Name()))
	}
	return out
}

func fileNames(snap map[string]string) []string {
	names := make([]string, 0, len(snap))
	for n := range snap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
