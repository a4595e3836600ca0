package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
)

// Options configures a Renderer for one run.
type Options struct {
	// LinkFilter enables the link-tagged variant for records with a
	// code-hosting link. When false every record is treated the same.
	LinkFilter bool
}

// Documents holds both renderings of one record.
type Documents struct {
	PMID     string
	Markdown []byte
	HTML     []byte
	// LinkTagged is set when the documents also belong in the link-tagged output.
	LinkTagged bool
}

// Renderer produces Markdown and HTML documents from article records.
type Renderer struct {
	opts Options
	md   goldmark.Markdown
	page *template.Template
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	return &Renderer{
		opts: opts,
		md: goldmark.New(
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		page: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Options returns the options the renderer was built with.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render builds both documents for rec.
func (r *Renderer) Render(rec *article.Record) (*Documents, error) {
	if rec == nil {
		return nil, fmt.Errorf("render: nil record")
	}

	mdDoc := markdownDocument(rec)
	htmlDoc, err := r.htmlDocument(rec, mdDoc)
	if err != nil {
		return nil, fmt.Errorf("rendering HTML for %s: %w", rec.PMID, err)
	}

	return &Documents{
		PMID:       rec.PMID,
		Markdown:   mdDoc,
		HTML:       htmlDoc,
		LinkTagged: r.opts.LinkFilter && article.AnyCodeLink(rec.Links),
	}, nil
}

type pageData struct {
	Title       string
	PMID        string
	PubMedURL   string
	HasAbstract bool
	HasLinks    bool
	Body        template.HTML
}

func (r *Renderer) htmlDocument(rec *article.Record, mdDoc []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert(mdDoc, &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	title := plainTitle(rec.Title)
	if title == "" {
		title = "PMID " + rec.PMID
	}

	var out bytes.Buffer
	err := r.page.Execute(&out, pageData{
		Title:       title,
		PMID:        rec.PMID,
		PubMedURL:   article.PubMedURL(rec.PMID),
		HasAbstract: strings.TrimSpace(rec.Abstract) != "",
		HasLinks:    len(rec.Links) > 0,
		// goldmark output is trusted: raw HTML in the source is dropped.
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return out.Bytes(), nil
}

var backslashEscape = regexp.MustCompile(`\\([[:punct:]])`)

// plainTitle drops Markdown backslash escapes for the page <title>.
func plainTitle(s string) string {
	return backslashEscape.ReplaceAllString(oneLine(s), "$1")
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, "Microsoft YaHei", sans-serif; margin: 2cm auto; max-width: 50em; padding: 0 1em; line-height: 1.6; color: #222; }
h1, h2, h3 { color: #333; }
h1 { font-size: 1.6em; border-bottom: 1px solid #ddd; padding-bottom: .3em; }
nav { font-size: .9em; margin-bottom: 1.5em; color: #666; }
nav a { color: #0366d6; margin-right: 1em; }
ul { padding-left: 1.4em; }
a { color: #0366d6; word-break: break-all; }
code { background-color: #f5f5f5; padding: 2px 4px; }
pre { background-color: #f5f5f5; padding: 10px; }
</style>
</head>
<body>
<nav>
<a href="{{.PubMedURL}}">PubMed {{.PMID}}</a>
{{- if .HasAbstract}}
<a href="#abstract">Abstract</a>
{{- end}}
{{- if .HasLinks}}
<a href="#links">Links</a>
{{- end}}
</nav>
<article>
{{.Body}}
</article>
</body>
</html>
`
