package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
)

func sampleRecord() *article.Record {
	r := &article.Record{
		PMID:                   "38123456",
		Title:                  "Fast alignment of genomes",
		Authors:                []string{"Jane Smith", "Fly Genome Consortium"},
		Abstract:               "MOTIVATION: Genome alignment is slow.\n\nRESULTS: We made it fast.",
		Journal:                "Bioinformatics",
		Year:                   "2024",
		Month:                  "Mar",
		Volume:                 "40",
		Issue:                  "3",
		Pages:                  "101-110",
		DOI:                    "10.1093/bioinformatics/btae001",
		PMCID:                  "PMC10900001",
		Keywords:               []string{"alignment", "genomics"},
		FirstAuthorAffiliation: "Example University",
		LastAuthorAffiliation:  "Consortium HQ",
	}
	r.SetLinks(article.DOIURL(r.DOI), "https://github.com/example/fastalign")
	return r
}

func TestRender_FieldParity(t *testing.T) {
	rec := sampleRecord()
	docs, err := New(Options{}).Render(rec)
	require.NoError(t, err)

	md := string(docs.Markdown)
	html := string(docs.HTML)

	values := []string{
		rec.PMID,
		rec.Title,
		"Jane Smith, Fly Genome Consortium",
		"Genome alignment is slow.",
		"We made it fast.",
		rec.Journal,
		"2024 Mar",
		"40(3):101-110",
		rec.DOI,
		rec.PMCID,
		"alignment, genomics",
		rec.FirstAuthorAffiliation,
		rec.LastAuthorAffiliation,
		"https://doi.org/10.1093/bioinformatics/btae001",
		"https://github.com/example/fastalign",
	}
	for _, v := range values {
		assert.Contains(t, md, v, "markdown missing %q", v)
		assert.Contains(t, html, v, "html missing %q", v)
	}

	labels := []string{"Authors", "Journal", "Published", "Citation", "DOI", "PMCID", "Keywords",
		"First Author Affiliation", "Corresponding Author Affiliation", "Abstract", "Links"}
	for _, l := range labels {
		assert.Contains(t, md, l)
		assert.Contains(t, html, l)
	}
}

func TestRender_OmitsEmptyFieldsInBoth(t *testing.T) {
	rec := &article.Record{PMID: "1", Title: "Only a title"}
	rec.SetLinks()

	docs, err := New(Options{LinkFilter: true}).Render(rec)
	require.NoError(t, err)

	for _, doc := range []string{string(docs.Markdown), string(docs.HTML)} {
		assert.Contains(t, doc, "Only a title")
		for _, absent := range []string{"Authors", "Journal", "DOI", "Keywords", "Affiliation", "id=\"abstract\"", "id=\"links\""} {
			assert.NotContains(t, doc, absent)
		}
	}
	assert.False(t, docs.LinkTagged)
}

func TestRender_MarkdownLayout(t *testing.T) {
	docs, err := New(Options{}).Render(sampleRecord())
	require.NoError(t, err)

	md := string(docs.Markdown)
	assert.True(t, strings.HasPrefix(md, "# Fast alignment of genomes\n\n"))
	assert.Contains(t, md, "- **PMID**: 38123456\n")
	assert.Contains(t, md, "\n## Abstract\n\nMOTIVATION: Genome alignment is slow.\n\nRESULTS: We made it fast.\n")
	assert.Contains(t, md, "\n## Links\n\n- <https://doi.org/10.1093/bioinformatics/btae001>\n- <https://github.com/example/fastalign>\n")
}

func TestRender_HTMLPage(t *testing.T) {
	docs, err := New(Options{}).Render(sampleRecord())
	require.NoError(t, err)

	html := string(docs.HTML)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Fast alignment of genomes</title>")
	assert.Contains(t, html, "<style>")
	assert.Contains(t, html, `id="abstract"`)
	assert.Contains(t, html, `href="#abstract"`)
	assert.Contains(t, html, `href="#links"`)
	assert.Contains(t, html, `href="https://pubmed.ncbi.nlm.nih.gov/38123456/"`)
	assert.Contains(t, html, `<a href="https://github.com/example/fastalign">`)
}

func TestRender_LinkTagging(t *testing.T) {
	withCode := sampleRecord()

	noCode := sampleRecord()
	noCode.SetLinks(article.DOIURL(noCode.DOI))

	on := New(Options{LinkFilter: true})
	off := New(Options{LinkFilter: false})

	docs, err := on.Render(withCode)
	require.NoError(t, err)
	assert.True(t, docs.LinkTagged)

	docs, err = on.Render(noCode)
	require.NoError(t, err)
	assert.False(t, docs.LinkTagged)

	docs, err = off.Render(withCode)
	require.NoError(t, err)
	assert.False(t, docs.LinkTagged, "toggle off never tags")
}

func TestRender_ToggleDoesNotChangeDocuments(t *testing.T) {
	rec := sampleRecord()
	a, err := New(Options{LinkFilter: true}).Render(rec)
	require.NoError(t, err)
	b, err := New(Options{LinkFilter: false}).Render(rec)
	require.NoError(t, err)

	assert.Equal(t, a.Markdown, b.Markdown)
	assert.Equal(t, a.HTML, b.HTML)
}

func TestRender_Deterministic(t *testing.T) {
	r := New(Options{LinkFilter: true})
	a, err := r.Render(sampleRecord())
	require.NoError(t, err)
	b, err := r.Render(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRender_UntitledFallsBackToPMID(t *testing.T) {
	rec := &article.Record{PMID: "77", Abstract: "Body text."}
	docs, err := New(Options{}).Render(rec)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(docs.Markdown), "# PMID 77\n"))
	assert.Contains(t, string(docs.HTML), "<title>PMID 77</title>")
}

func TestRender_EscapesPlainFields(t *testing.T) {
	rec := &article.Record{
		PMID:    "5",
		Title:   "T",
		Journal: "J <script>alert(1)</script> *bold*",
		Authors: []string{"O_Brien"},
	}
	docs, err := New(Options{}).Render(rec)
	require.NoError(t, err)

	md := string(docs.Markdown)
	assert.Contains(t, md, `J \<script\>alert(1)\</script\> \*bold\*`)
	assert.Contains(t, md, `O\_Brien`)

	html := string(docs.HTML)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<em>bold</em>")
	assert.Contains(t, html, "O_Brien")
}

func TestRender_EscapedTagsAppearInBothDocuments(t *testing.T) {
	rec := &article.Record{
		PMID:     "12",
		Title:    `The \<b> operator`,
		Abstract: `We define the operator \<span> over sets and use A\<B.`,
	}
	docs, err := New(Options{}).Render(rec)
	require.NoError(t, err)

	md := string(docs.Markdown)
	assert.Contains(t, md, `# The \<b> operator`)
	assert.Contains(t, md, `operator \<span> over`)
	assert.NotContains(t, md, " <span>")

	html := string(docs.HTML)
	assert.NotContains(t, html, "raw HTML omitted")
	assert.Contains(t, html, "<title>The &lt;b&gt; operator</title>")
	assert.Contains(t, html, "The &lt;b&gt; operator</h1>")
	assert.Contains(t, html, "<p>We define the operator &lt;span&gt; over sets and use A&lt;B.</p>")
}

func TestPlainTitle(t *testing.T) {
	assert.Equal(t, "A <b> B", plainTitle(`A \<b> B`))
	assert.Equal(t, "x_y z", plainTitle("x\\_y\n z"))
	assert.Equal(t, "", plainTitle("  "))
}

func TestRender_AngleBracketsInLinkAreEncoded(t *testing.T) {
	rec := &article.Record{PMID: "9", Title: "SICI"}
	rec.SetLinks(article.DOIURL("10.1002/(SICI)1097-4636(199705)35:2<133::AID-JBM1>3.0.CO;2-L"))

	docs, err := New(Options{}).Render(rec)
	require.NoError(t, err)
	assert.Contains(t, string(docs.Markdown), "%3C133::AID-JBM1%3E")
	assert.Contains(t, string(docs.HTML), "%3C133::AID-JBM1%3E")
}

func TestRender_NilRecord(t *testing.T) {
	_, err := New(Options{}).Render(nil)
	assert.Error(t, err)
}

func TestCitation(t *testing.T) {
	assert.Equal(t, "40(3):101-110", citation(&article.Record{Volume: "40", Issue: "3", Pages: "101-110"}))
	assert.Equal(t, "40", citation(&article.Record{Volume: "40"}))
	assert.Equal(t, "e12", citation(&article.Record{Pages: "e12"}))
	assert.Equal(t, "", citation(&article.Record{}))
}
