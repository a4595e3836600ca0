// Package render turns an article record into the two per-article
// documents: a Markdown file meant for machine and LLM parsing, and a styled
// HTML page for reading in a browser. The HTML body is produced from the
// Markdown, so both documents always carry the same fields.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
)

// Section headings, also used as anchor ids in the HTML page.
const (
	headingAbstract = "Abstract"
	headingLinks    = "Links"
)

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"`", "\\`",
	"#", `\#`,
	"|", `\|`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// escapeText makes plain text safe to embed in Markdown.
func escapeText(s string) string {
	return textEscaper.Replace(strings.TrimSpace(s))
}

// oneLine flattens inline Markdown onto a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var autolinkEscaper = strings.NewReplacer("<", "%3C", ">", "%3E", " ", "%20")

// markdownDocument builds the machine-readable document for rec.
func markdownDocument(rec *article.Record) []byte {
	var b bytes.Buffer

	title := oneLine(rec.Title)
	if title == "" {
		title = "PMID " + escapeText(rec.PMID)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", label, escapeText(value))
	}
	list := func(label string, values []string) {
		var parts []string
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
		field(label, strings.Join(parts, ", "))
	}

	field("PMID", rec.PMID)
	list("Authors", rec.Authors)
	field("Journal", rec.Journal)
	field("Published", rec.Published())
	field("Citation", citation(rec))
	field("DOI", rec.DOI)
	field("PMCID", rec.PMCID)
	list("Keywords", rec.Keywords)
	field("First Author Affiliation", rec.FirstAuthorAffiliation)
	field("Corresponding Author Affiliation", rec.LastAuthorAffiliation)

	if abstract := strings.TrimSpace(rec.Abstract); abstract != "" {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", headingAbstract, abstract)
	}

	if len(rec.Links) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", headingLinks)
		for _, l := range rec.Links {
			fmt.Fprintf(&b, "- <%s>\n", autolinkEscaper.Replace(l))
		}
	}

	return b.Bytes()
}

// citation formats volume, issue and pages as "40(3):101-110".
func citation(rec *article.Record) string {
	c := rec.Volume
	if rec.Issue != "" {
		c += "(" + rec.Issue + ")"
	}
	if rec.Pages != "" {
		if c != "" {
			c += ":"
		}
		c += rec.Pages
	}
	return c
}
