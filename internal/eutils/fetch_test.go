package eutils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrybloomingdale/pubcrawl/internal/ncbi"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ncbi.WithBaseURL(srv.URL), ncbi.WithAPIKey("test"), ncbi.WithMaxRetries(0))
}

func TestFetchArticle_Success(t *testing.T) {
	fixture := loadTestdata(t, "efetch_article.xml")

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "38123456", q.Get("id"))
		assert.Equal(t, "xml", q.Get("retmode"))
		w.Write(fixture)
	})

	a, err := c.FetchArticle(context.Background(), " 38123456 ")
	require.NoError(t, err)

	assert.Equal(t, "38123456", a.PMID)
	assert.Contains(t, a.Title, "Drosophila")
	assert.NotContains(t, a.Title, "<i>")
	assert.Equal(t, "Bioinformatics (Oxford, England)", a.Journal)
	assert.Equal(t, "Bioinformatics", a.JournalAbbrev)
	assert.Equal(t, "40", a.Volume)
	assert.Equal(t, "3", a.Issue)
	assert.Equal(t, "101-110", a.Pages)
	assert.Equal(t, "2024", a.Year)
	assert.Equal(t, "Mar", a.Month)
	assert.Equal(t, "10.1093/bioinformatics/btae001", a.DOI)
	assert.Equal(t, "PMC10900001", a.PMCID)
	assert.Equal(t, "eng", a.Language)
	assert.Equal(t, []string{"alignment", "genomics"}, a.Keywords)

	require.Len(t, a.Authors, 2, "authors with ValidYN=N are dropped")
	assert.Equal(t, "Jane Smith", a.Authors[0].FullName())
	assert.Equal(t, "Dept of Genomics, Example University.", a.Authors[0].Affiliation)
	assert.Equal(t, "Fly Genome Consortium", a.Authors[1].FullName())

	assert.Contains(t, a.Abstract, "MOTIVATION: Genome alignment is slow.")
	assert.Contains(t, a.Abstract, "\n\nAVAILABILITY: ")

	assert.Equal(t, []string{"https://github.com/example/fast_align"}, a.MentionedURLs)
}

func TestFetchArticle_InvalidPMIDNoRequest(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	for _, id := range []string{"", "abc123", "PMC123", "12 34", "1234567890"} {
		_, err := c.FetchArticle(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidPMID, "id %q", id)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestFetchArticle_NotFound(t *testing.T) {
	for _, name := range []string{"efetch_empty.xml", "efetch_error.xml"} {
		t.Run(name, func(t *testing.T) {
			fixture := loadTestdata(t, name)
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write(fixture)
			})

			_, err := c.FetchArticle(context.Background(), "99999999")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFetchArticle_Malformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Service unavailable"))
	})

	_, err := c.FetchArticle(context.Background(), "38123456")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFetchArticle_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchArticle(context.Background(), "38123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestParseArticles_MedlineDateFallback(t *testing.T) {
	tests := []struct {
		medline string
		want    string
	}{
		{"1998 Dec-1999 Jan", "1998"},
		{"Summer 2000", "2000"},
		{"Fall-Winter 2003-2004", "2003"},
		{"Spring", ""},
	}
	for _, tt := range tests {
		t.Run(tt.medline, func(t *testing.T) {
			data := []byte(`<PubmedArticleSet><PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
<Journal><JournalIssue><PubDate><MedlineDate>` + tt.medline + `</MedlineDate></PubDate></JournalIssue><Title>J</Title></Journal>
<ArticleTitle>T</ArticleTitle></Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`)

			articles, err := parseArticles(data)
			require.NoError(t, err)
			require.Len(t, articles, 1)
			assert.Equal(t, tt.want, articles[0].Year)
			assert.Empty(t, articles[0].Abstract)
			assert.Empty(t, articles[0].MentionedURLs)
		})
	}
}

func TestParseArticles_EntityTagsStayText(t *testing.T) {
	data := []byte(`<PubmedArticleSet><PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
<Journal><Title>J</Title></Journal>
<ArticleTitle>The &lt;b&gt; operator in <i>Drosophila</i></ArticleTitle>
<Abstract><AbstractText>We define the operator &lt;span&gt; over sets and use A&lt;B.</AbstractText></Abstract>
</Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`)

	articles, err := parseArticles(data)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, `We define the operator \<span> over sets and use A\<B.`, a.Abstract)
	assert.Contains(t, a.Title, `The \<b> operator`)
	assert.Contains(t, a.Title, "Drosophila")
	assert.NotContains(t, a.Title, "<i>")
}

func TestEscapeAngles(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"no tags", "no tags"},
		{"a <span> b", `a \<span> b`},
		{"x<y<z", `x\<y\<z`},
		{`already \<escaped`, `already \<escaped`},
		{`literal \\<tag`, `literal \\\<tag`},
		{"code `a<b` and c<d", "code `a<b` and c\\<d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeAngles(tt.in), "escapeAngles(%q)", tt.in)
	}
}

func TestMentionedURLs(t *testing.T) {
	got := mentionedURLs(
		`See <a href="x">https://gitlab.com/a/b</a>, and http://example.org/q?a=1&amp;b=2.`,
		`Repeat https://gitlab.com/a/b; new (https://github.com/c/d)`,
	)
	assert.Equal(t, []string{
		"https://gitlab.com/a/b",
		"http://example.org/q?a=1&b=2",
		"https://github.com/c/d",
	}, got)
}

func TestValidPMID(t *testing.T) {
	assert.True(t, ValidPMID("1"))
	assert.True(t, ValidPMID("38123456"))
	assert.False(t, ValidPMID(""))
	assert.False(t, ValidPMID("38123456a"))
	assert.False(t, ValidPMID("-1"))
}
