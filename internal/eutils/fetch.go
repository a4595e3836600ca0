package eutils

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// XML structures for parsing PubMed EFetch responses.

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

// efetchError is what EFetch returns for identifiers it cannot resolve.
type efetchError struct {
	XMLName xml.Name `xml:"eFetchResult"`
	Error   string   `xml:"ERROR"`
}

type pubmedArticle struct {
	Citation   medlineCitation `xml:"MedlineCitation"`
	PubmedData pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID        string         `xml:"PMID"`
	Article     xmlArticle     `xml:"Article"`
	KeywordList xmlKeywordList `xml:"KeywordList"`
}

type xmlArticle struct {
	Journal      xmlJournal    `xml:"Journal"`
	ArticleTitle xmlInline     `xml:"ArticleTitle"`
	Abstract     xmlAbstract   `xml:"Abstract"`
	AuthorList   xmlAuthorList `xml:"AuthorList"`
	Language     []string      `xml:"Language"`
	Pagination   xmlPagination `xml:"Pagination"`
}

// xmlInline keeps the raw inner markup (<i>, <sup>, ...) for conversion.
type xmlInline struct {
	Inner string `xml:",innerxml"`
}

type xmlJournal struct {
	JournalIssue    xmlJournalIssue `xml:"JournalIssue"`
	Title           string          `xml:"Title"`
	ISOAbbreviation string          `xml:"ISOAbbreviation"`
}

type xmlJournalIssue struct {
	Volume  string     `xml:"Volume"`
	Issue   string     `xml:"Issue"`
	PubDate xmlPubDate `xml:"PubDate"`
}

type xmlPubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	MedlineDate string `xml:"MedlineDate"`
}

type xmlAbstract struct {
	AbstractTexts []xmlAbstractText `xml:"AbstractText"`
}

type xmlAbstractText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

type xmlAuthorList struct {
	Authors []xmlAuthor `xml:"Author"`
}

type xmlAuthor struct {
	ValidYN         string               `xml:"ValidYN,attr"`
	LastName        string               `xml:"LastName"`
	ForeName        string               `xml:"ForeName"`
	Initials        string               `xml:"Initials"`
	CollectiveName  string               `xml:"CollectiveName"`
	AffiliationInfo []xmlAffiliationInfo `xml:"AffiliationInfo"`
}

type xmlAffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

type xmlPagination struct {
	MedlinePgn string `xml:"MedlinePgn"`
}

type xmlKeywordList struct {
	Keywords []string `xml:"Keyword"`
}

type pubmedData struct {
	ArticleIDList xmlArticleIDList `xml:"ArticleIdList"`
}

type xmlArticleIDList struct {
	ArticleIDs []xmlArticleID `xml:"ArticleId"`
}

type xmlArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

var (
	pmidPattern = regexp.MustCompile(`^[0-9]{1,9}$`)
	urlPattern  = regexp.MustCompile(`https?://[^\s<>"']+`)
	yearPattern = regexp.MustCompile(`\b[0-9]{4}\b`)
)

// ValidPMID reports whether id is a well-formed PubMed identifier.
func ValidPMID(id string) bool {
	return pmidPattern.MatchString(id)
}

// FetchArticle retrieves the article for a single PMID with one EFetch call.
// Malformed identifiers fail with ErrInvalidPMID without touching the network.
func (c *Client) FetchArticle(ctx context.Context, pmid string) (*Article, error) {
	pmid = strings.TrimSpace(pmid)
	if !ValidPMID(pmid) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPMID, pmid)
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("rettype", "xml")
	params.Set("retmode", "xml")

	body, err := c.DoGet(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}

	articles, err := parseArticles(body)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		if articles[i].PMID == pmid {
			return &articles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: PMID %s", ErrNotFound, pmid)
}

// parseArticles parses PubMed XML into Article structs.
func parseArticles(data []byte) ([]Article, error) {
	var articleSet pubmedArticleSet
	if err := xml.Unmarshal(data, &articleSet); err != nil {
		var fe efetchError
		if xml.Unmarshal(data, &fe) == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(fe.Error))
		}
		return nil, fmt.Errorf("%w: parsing PubMed XML: %v", ErrMalformed, err)
	}

	conv := md.NewConverter("", true, nil)
	articles := make([]Article, 0, len(articleSet.Articles))
	for _, pa := range articleSet.Articles {
		a, err := convertArticle(conv, pa)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func convertArticle(conv *md.Converter, pa pubmedArticle) (Article, error) {
	mc := pa.Citation
	xa := mc.Article

	title, err := inlineMarkdown(conv, xa.ArticleTitle.Inner)
	if err != nil {
		return Article{}, fmt.Errorf("%w: converting title of PMID %s: %v", ErrMalformed, mc.PMID, err)
	}

	a := Article{
		PMID:          strings.TrimSpace(mc.PMID),
		Title:         title,
		Journal:       strings.TrimSpace(xa.Journal.Title),
		JournalAbbrev: xa.Journal.ISOAbbreviation,
		Volume:        xa.Journal.JournalIssue.Volume,
		Issue:         xa.Journal.JournalIssue.Issue,
		Pages:         xa.Pagination.MedlinePgn,
		Year:          xa.Journal.JournalIssue.PubDate.Year,
		Month:         xa.Journal.JournalIssue.PubDate.Month,
	}
	if a.Year == "" {
		// MedlineDate looks like "2024 Jan-Feb" or "Summer 2000".
		a.Year = yearPattern.FindString(xa.Journal.JournalIssue.PubDate.MedlineDate)
	}

	if len(xa.Language) > 0 {
		a.Language = xa.Language[0]
	}

	var parts []string
	for _, at := range xa.Abstract.AbstractTexts {
		text, err := inlineMarkdown(conv, at.Inner)
		if err != nil {
			return Article{}, fmt.Errorf("%w: converting abstract of PMID %s: %v", ErrMalformed, mc.PMID, err)
		}
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}
	a.Abstract = strings.Join(parts, "\n\n")

	raw := []string{xa.ArticleTitle.Inner}
	for _, at := range xa.Abstract.AbstractTexts {
		raw = append(raw, at.Inner)
	}
	a.MentionedURLs = mentionedURLs(raw...)

	for _, au := range xa.AuthorList.Authors {
		if au.ValidYN == "N" {
			continue
		}
		author := Author{
			LastName:       au.LastName,
			ForeName:       au.ForeName,
			Initials:       au.Initials,
			CollectiveName: strings.TrimSpace(au.CollectiveName),
		}
		if len(au.AffiliationInfo) > 0 {
			author.Affiliation = strings.TrimSpace(au.AffiliationInfo[0].Affiliation)
		}
		a.Authors = append(a.Authors, author)
	}

	for _, aid := range pa.PubmedData.ArticleIDList.ArticleIDs {
		switch aid.IDType {
		case "doi":
			a.DOI = strings.TrimSpace(aid.Value)
		case "pmc":
			a.PMCID = strings.TrimSpace(aid.Value)
		}
	}

	for _, kw := range mc.KeywordList.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			a.Keywords = append(a.Keywords, kw)
		}
	}

	return a, nil
}

// inlineMarkdown converts PubMed inline markup to Markdown text.
func inlineMarkdown(conv *md.Converter, inner string) (string, error) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return "", nil
	}
	out, err := conv.ConvertString(inner)
	if err != nil {
		return "", err
	}
	return escapeAngles(strings.TrimSpace(out)), nil
}

// escapeAngles backslash-escapes every '<' the converter left bare. Entities
// such as "&lt;span&gt;" decode to a literal tag, which Markdown would
// otherwise treat as raw HTML. Code spans are copied as is.
func escapeAngles(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	backslashes := 0
	inCode := false
	for _, r := range s {
		escaped := backslashes%2 == 1
		switch {
		case r == '`' && !escaped:
			inCode = !inCode
		case r == '<' && !escaped && !inCode:
			b.WriteByte('\\')
		}
		if r == '\\' && !inCode {
			backslashes++
		} else {
			backslashes = 0
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mentionedURLs pulls http(s) URLs out of raw inline markup, in order of
// first appearance. URLs are taken from the source text rather than the
// converted Markdown, which escapes characters such as '_'.
func mentionedURLs(raw ...string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, text := range raw {
		for _, m := range urlPattern.FindAllString(text, -1) {
			u := strings.TrimRight(html.UnescapeString(m), ".,;:)]}")
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}
